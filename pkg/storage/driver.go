// Package storage defines the persistence interface for profiles, captures,
// and memories.
//
// The Driver is the only shared mutable resource in the system. Capture
// status and memory sets are mutated exclusively through the pipeline's
// single-writer discipline; the conditional transition and atomic commit
// operations below are what make that discipline enforceable under
// concurrent workers.
package storage

import (
	"context"

	"github.com/reveriehq/reverie/pkg/memory"
)

// MemoryPatch carries the user-editable fields of a memory. Nil fields are
// left unchanged.
type MemoryPatch struct {
	Content        *string
	EmotionalNote  *string
	Category       *memory.Category
	Importance     *int
	PreferVerbatim *bool
	Summary        *string
	SummaryTokens  *int
}

// Driver defines the interface for persisting and retrieving profiles,
// captures, and memories in a storage backend.
//
// Every memory read/write is scoped by profile; a lookup with the wrong
// profile reference behaves exactly like a lookup of a missing record.
type Driver interface {
	// CreateProfile stores a new profile. When p.Default is set, any
	// existing default for the same account is demoted in the same
	// transaction, preserving the at-most-one-default invariant.
	CreateProfile(ctx context.Context, p *memory.Profile) error

	// GetProfile retrieves a profile by its identifier.
	GetProfile(ctx context.Context, id string) (*memory.Profile, error)

	// ListProfiles returns all profiles owned by an account.
	ListProfiles(ctx context.Context, accountID string) ([]*memory.Profile, error)

	// DeleteProfile removes a profile, cascading to its captures and
	// memories.
	DeleteProfile(ctx context.Context, id string) error

	// CreateCapture stores a new capture row.
	CreateCapture(ctx context.Context, c *memory.Capture) error

	// GetCapture retrieves a capture by its identifier. Used by the
	// pipeline workers, which run outside any profile scope.
	GetCapture(ctx context.Context, id string) (*memory.Capture, error)

	// GetOwnedCapture retrieves a capture scoped to a profile. Returns
	// NotFoundError when the capture exists but belongs elsewhere.
	GetOwnedCapture(ctx context.Context, profileID, id string) (*memory.Capture, error)

	// FindCaptureByFingerprint returns the live capture with the given
	// (profile, fingerprint) pair, or NotFoundError.
	FindCaptureByFingerprint(ctx context.Context, profileID, fp string) (*memory.Capture, error)

	// ListCaptures returns a page of a profile's captures, most recent
	// first. An empty status matches all statuses.
	ListCaptures(ctx context.Context, profileID string, status memory.CaptureStatus, cursor string, limit int) ([]*memory.Capture, string, error)

	// TransitionCapture conditionally moves a capture from one of the
	// given statuses to another. Returns ConflictError if the row is not
	// currently in an eligible status. This is the status-gated claim
	// that keeps at most one job active per capture.
	TransitionCapture(ctx context.Context, id string, from []memory.CaptureStatus, to memory.CaptureStatus) error

	// FailCapture marks a processing capture as failed with a short
	// human-readable reason.
	FailCapture(ctx context.Context, id, reason string) error

	// CommitExtraction atomically replaces the capture's memory set with
	// mems, flips its status to completed, and updates the denormalized
	// memory count. A concurrent reader observes either the old set with
	// the old status or the new set with the new status, never a mix.
	CommitExtraction(ctx context.Context, captureID string, mems []*memory.Memory) error

	// DeleteCapture removes a capture. Memories extracted from it
	// survive with their source reference nulled.
	DeleteCapture(ctx context.Context, profileID, id string) error

	// CreateMemory stores a single memory (the direct user-edit path).
	CreateMemory(ctx context.Context, m *memory.Memory) error

	// GetMemory retrieves a memory scoped to a profile.
	GetMemory(ctx context.Context, profileID, id string) (*memory.Memory, error)

	// ListMemories returns a page of a profile's memories, most recent
	// first, optionally filtered by category.
	ListMemories(ctx context.Context, profileID string, category *memory.Category, cursor string, limit int) ([]*memory.Memory, string, error)

	// AllMemories returns every memory of a profile, most recent first.
	// Wake prompt generation reads through this.
	AllMemories(ctx context.Context, profileID string) ([]*memory.Memory, error)

	// UpdateMemory applies a patch to a memory scoped to a profile and
	// returns the updated record.
	UpdateMemory(ctx context.Context, profileID, id string, patch MemoryPatch) (*memory.Memory, error)

	// DeleteMemory removes a memory scoped to a profile.
	DeleteMemory(ctx context.Context, profileID, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
