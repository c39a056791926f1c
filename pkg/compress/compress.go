// Package compress provides the distillation layer used when a wake prompt's
// candidate memories exceed their token budget.
//
// Compression is a quality enhancement, never a hard dependency: on any
// failure the caller falls back to the truncation-only packing result. The
// quality contract for every implementation is the same: keep at least one
// representative fact per category present in the input, and never fabricate
// content absent from it.
package compress

import (
	"context"
	"errors"

	"github.com/reveriehq/reverie/pkg/memory"
)

// Result is the distilled rendering of an over-budget memory set.
type Result struct {
	// Text is the condensed prose covering the input memories.
	Text string `json:"text"`

	// Tokens is the estimated cost of Text.
	Tokens int `json:"tokens"`

	// Categories lists the distinct categories represented in Text, in
	// canonical order.
	Categories []memory.Category `json:"categories"`
}

// ErrNothingToCompress indicates an empty input set.
var ErrNothingToCompress = errors.New("no memories to compress")

// Compressor distills an over-budget memory set into a smaller rendering.
type Compressor interface {
	// Name returns the canonical compressor name (e.g., "openai", "static").
	Name() string

	// Compress distills mems to fit within targetTokens. Blocking; only
	// called during wake prompt generation, never on the intake path.
	Compress(ctx context.Context, mems []*memory.Memory, targetTokens int) (*Result, error)
}
