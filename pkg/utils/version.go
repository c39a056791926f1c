// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Set at release time via
// -ldflags "-X github.com/reveriehq/reverie/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
