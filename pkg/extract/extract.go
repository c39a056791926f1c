// Package extract provides a pluggable extraction layer for the reverie
// system.
//
// Extractors distill durable memories from raw conversation transcripts.
// The [Extractor] interface is intentionally minimal: implementations take
// raw text and a profile context and return candidate memories, and the
// pipeline validates whatever comes back. Production extraction calls an
// external language model; the static driver returns fixed candidates for
// fixed input so the pipeline is implementation-agnostic under test.
//
// Drivers are pluggable via configuration:
//
//	[extraction]
//	provider = "openai"   # or "static"
package extract

import (
	"context"
	"errors"
)

// ProfileContext carries the capture metadata an extractor may use to shape
// its output.
type ProfileContext struct {
	// ProfileID identifies the owning profile.
	ProfileID string

	// ProfileName is the companion's display name.
	ProfileName string

	// Method is the inbound channel the capture arrived through. Image
	// derived captures get speaker-attribution confidence scoring.
	Method string

	// PlatformHint optionally names the chat platform the transcript
	// came from (e.g., "whatsapp").
	PlatformHint string
}

// Candidate is one memory proposed by an extractor, prior to validation.
type Candidate struct {
	// Category must be one of the fixed category set.
	Category string `json:"category"`

	// Content is the factual statement. Required.
	Content string `json:"content"`

	// EmotionalNote is the emotional significance; nil when the moment
	// carried no notable emotional weight.
	EmotionalNote *string `json:"emotional_note,omitempty"`

	// Importance must be in [1, 5].
	Importance int `json:"importance"`

	// Verbatim is the exact excerpt supporting Content. Required.
	Verbatim string `json:"verbatim"`

	// SpeakerConfidence is set only for image-derived captures.
	SpeakerConfidence *float64 `json:"speaker_confidence,omitempty"`
}

// Extractor distills candidate memories from a raw transcript.
type Extractor interface {
	// Name returns the canonical extractor name (e.g., "openai", "static").
	Name() string

	// Extract returns candidate memories for the transcript. Blocking;
	// only ever called from inside a pipeline worker, never on the
	// request path.
	Extract(ctx context.Context, rawText string, profile ProfileContext) ([]Candidate, error)
}

// KeySource selects which credential an account's extraction calls use.
// The three strategies are variants of one polymorphic capability chosen at
// call time by account configuration.
type KeySource string

const (
	// KeyOperator uses the operator's server-side credential.
	KeyOperator KeySource = "operator"

	// KeyUser uses a user-supplied credential (BYOK).
	KeyUser KeySource = "user"

	// KeyProxy routes through an operator proxy endpoint that holds the
	// credential upstream.
	KeyProxy KeySource = "proxy"
)

// ErrEmptyBatch indicates the extractor returned a structurally empty
// response where at least one memory was expected. Not retried: a
// deterministic parse failure will not change on a second attempt.
var ErrEmptyBatch = errors.New("extraction returned no candidates")

// transientError marks an error as retryable (network, timeout, rate-limit
// class failures).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is a retryable extraction failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
