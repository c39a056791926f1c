// Package fingerprint computes stable content fingerprints for capture
// deduplication.
//
// Two submissions of the same transcript must produce the same digest even
// when they differ in surrounding whitespace or letter case, so the text is
// normalized before hashing. The digest is a full SHA-256, not a checksum:
// accidental collisions between distinct conversations are not a practical
// concern.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalizes raw transcript text prior to hashing: leading and
// trailing whitespace is trimmed, runs of internal whitespace collapse to a
// single space, and the text is lowercased.
func Normalize(text string) string {
	fields := strings.Fields(text)
	return strings.ToLower(strings.Join(fields, " "))
}

// Fingerprint returns the hex-encoded SHA-256 digest of the normalized text.
// Deterministic and side-effect free; empty input is rejected upstream by
// intake validation, so no error path exists here.
func Fingerprint(text string) string {
	h := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(h[:])
}
