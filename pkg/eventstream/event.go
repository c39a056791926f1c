// Package eventstream defines transport-neutral lifecycle events and the
// publisher interface used to emit them to downstream consumers.
package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCaptureProcessed is emitted after a capture reaches a
	// terminal status.
	EventTypeCaptureProcessed = "reverie.capture.processed"
)

// CaptureProcessedEvent is a transport-neutral event payload for a capture
// that finished processing, successfully or not.
type CaptureProcessedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	ProfileID     string    `json:"profile_id"`
	CaptureID     string    `json:"capture_id"`
	Status        string    `json:"status"`
	MemoryCount   int       `json:"memory_count"`
	Error         string    `json:"error,omitempty"`
}
