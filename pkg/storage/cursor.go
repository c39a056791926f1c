package storage

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Cursor encodes a keyset pagination position: the creation time and ID of
// the last record on the previous page. Opaque to callers.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor renders a cursor as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor token. An empty token decodes to the
// zero cursor, meaning "from the start".
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor: %w", err)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}

	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor timestamp: %w", err)
	}

	return Cursor{CreatedAt: ts, ID: parts[1]}, nil
}

// Zero reports whether the cursor points at the start.
func (c Cursor) Zero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// Before reports whether a record at (createdAt, id) sorts strictly after
// the cursor position in the most-recent-first ordering, i.e. whether it
// belongs on a later page.
func (c Cursor) Before(createdAt time.Time, id string) bool {
	if createdAt.Before(c.CreatedAt) {
		return true
	}
	return createdAt.Equal(c.CreatedAt) && id < c.ID
}
