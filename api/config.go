// Package api provides the HTTP API server for managing profiles, captures,
// memories, and wake prompt generation.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// DefaultPageSize bounds list responses when no limit is given.
	DefaultPageSize int

	// MaxPageSize caps the limit a caller may request.
	MaxPageSize int
}
