// Package memory defines the core data model for the reverie system.
//
// A Capture is one ingested raw transcript. Memories are the discrete,
// categorized units distilled from a capture by the extraction layer. Both
// belong to a Profile, which is the sole ownership and authorization
// boundary: every read and write path resolves records through a profile
// reference, never by bare identifier alone.
package memory

import (
	"time"
)

// Category groups memories into a fixed enumerated set. Values are stored
// as plain strings so the set can grow without a schema migration.
type Category string

const (
	CategoryEmotional     Category = "emotional"
	CategoryWork          Category = "work"
	CategoryHobbies       Category = "hobbies"
	CategoryRelationships Category = "relationships"
	CategoryPreferences   Category = "preferences"
)

// Categories returns all valid categories in their canonical section order.
// The order is deterministic and is the order wake prompt sections appear in.
func Categories() []Category {
	return []Category{
		CategoryEmotional,
		CategoryWork,
		CategoryHobbies,
		CategoryRelationships,
		CategoryPreferences,
	}
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryEmotional, CategoryWork, CategoryHobbies,
		CategoryRelationships, CategoryPreferences:
		return true
	}
	return false
}

// CaptureStatus is the processing state of a capture.
// Transitions: queued -> processing -> completed | failed.
// A failed (or completed) capture re-enters queued via an explicit retry.
type CaptureStatus string

const (
	StatusQueued     CaptureStatus = "queued"
	StatusProcessing CaptureStatus = "processing"
	StatusCompleted  CaptureStatus = "completed"
	StatusFailed     CaptureStatus = "failed"
)

// Terminal reports whether the status ends a processing attempt.
func (s CaptureStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Method identifies the inbound channel that produced a capture.
// This is an open set: adapters may introduce new methods without a
// schema change, so no validation is applied beyond non-emptiness.
type Method string

const (
	MethodDirectText   Method = "direct-text"
	MethodImage        Method = "derived-from-image"
	MethodForwarded    Method = "forwarded-message"
	MethodProgrammatic Method = "programmatic"
)

// Importance bounds for a memory's priority.
const (
	ImportanceMin = 1
	ImportanceMax = 5
)

// ValidImportance reports whether i is within the 1-5 priority scale.
func ValidImportance(i int) bool {
	return i >= ImportanceMin && i <= ImportanceMax
}

// Profile is one addressable companion context a user maintains memories
// for. At most one profile per account may be the default; the storage
// layer enforces that invariant at write time.
type Profile struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"created_at"`
}

// Capture is one ingested transcript awaiting or having undergone
// extraction. The (ProfileID, Fingerprint) pair is unique among live
// captures, which is what makes intake idempotent.
type Capture struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Method    Method `json:"method"`

	// RawText may be empty when the transcript is derived asynchronously
	// by an upstream adapter.
	RawText string `json:"raw_text,omitempty"`

	// Fingerprint is the sha256 digest of the normalized raw text.
	Fingerprint string `json:"fingerprint"`

	Status CaptureStatus `json:"status"`

	// ErrorDetail carries a short human-readable reason, populated only
	// when Status is failed.
	ErrorDetail string `json:"error_detail,omitempty"`

	// MemoryCount is a denormalized count of memories produced by the
	// most recent successful extraction. Maintained by the same atomic
	// operation that writes the memory rows.
	MemoryCount int `json:"memory_count"`

	PlatformHint string    `json:"platform_hint,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Memory is one discrete extracted unit: a factual statement, its optional
// emotional weight, and the verbatim excerpt that supports it.
type Memory struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`

	// CaptureID references the source capture. Nil when the capture was
	// deleted after extraction; the memory survives.
	CaptureID *string `json:"capture_id,omitempty"`

	Category Category `json:"category"`

	// Content is the factual statement. Always non-empty.
	Content string `json:"content"`

	// EmotionalNote is the emotional significance of the memory. Nil
	// means no notable emotional weight, which is distinct from an empty
	// annotation.
	EmotionalNote *string `json:"emotional_note,omitempty"`

	// Importance is the 1-5 priority used to order memories for packing.
	Importance int `json:"importance"`

	// Verbatim is the exact excerpt from the capture supporting Content.
	Verbatim string `json:"verbatim"`

	// Summary is a compressed rendering of the memory, produced by
	// re-summarization. Nil until one exists.
	Summary *string `json:"summary,omitempty"`

	// PreferVerbatim forces the verbatim form during packing even when a
	// cheaper summary exists. User-settable.
	PreferVerbatim bool `json:"prefer_verbatim"`

	// Cached token estimates so wake prompt generation does O(1) lookups
	// instead of re-estimating on every call.
	VerbatimTokens int `json:"verbatim_tokens"`
	SummaryTokens  int `json:"summary_tokens"`

	// SpeakerConfidence is the speaker-attribution confidence in [0, 1].
	// Only meaningful for image-derived captures; nil otherwise.
	SpeakerConfidence *float64 `json:"speaker_confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackText returns the text form the packer would place in a wake prompt:
// the verbatim excerpt when PreferVerbatim is set or no summary exists,
// the summary otherwise.
func (m *Memory) PackText() string {
	if m.PreferVerbatim || m.Summary == nil || *m.Summary == "" {
		return m.Verbatim
	}
	return *m.Summary
}

// PackTokens returns the cached token cost of PackText.
func (m *Memory) PackTokens() int {
	if m.PreferVerbatim || m.Summary == nil || *m.Summary == "" {
		return m.VerbatimTokens
	}
	return m.SummaryTokens
}
