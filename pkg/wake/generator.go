package wake

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/compress"
	"github.com/reveriehq/reverie/pkg/memory"
)

// DefaultBudget is the token budget applied when a request does not
// specify one.
const DefaultBudget = 2000

// Generator produces wake prompts. The compressor handles overflow that
// the budget could not accommodate; the fallback runs when the primary
// compressor fails, so wake prompt generation itself never depends on an
// external service being up.
type Generator struct {
	compressor compress.Compressor
	fallback   compress.Compressor
	logger     *zap.Logger
}

// NewGenerator builds a Generator. compressor may equal fallback when no
// model-backed compression is configured.
func NewGenerator(compressor, fallback compress.Compressor, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		compressor: compressor,
		fallback:   fallback,
		logger:     logger,
	}
}

// Generate packs the profile's memories into the budget and assembles the
// wake prompt. Overflow memories are condensed into the leftover budget
// rather than dropped. Given unchanged memory state and identical
// arguments, the output is byte-identical across calls (provided the
// configured compressor is deterministic).
func (g *Generator) Generate(ctx context.Context, profileName string, mems []*memory.Memory, categories []memory.Category, budget int) (Artifact, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if len(categories) == 0 {
		categories = memory.Categories()
	}

	packed := Pack(mems, categories, budget)

	var condensed *compress.Result
	if len(packed.Remainder) > 0 {
		condensed = g.condense(ctx, packed.Remainder, budget-packed.TotalTokens)
	}

	return Assemble(packed.Selected, condensed, profileName), nil
}

// condense shrinks overflow memories into target tokens, trying the
// primary compressor first and the deterministic fallback after. A nil
// return means both failed; the caller omits the condensed section.
func (g *Generator) condense(ctx context.Context, overflow []*memory.Memory, target int) *compress.Result {
	res, err := g.compressor.Compress(ctx, overflow, target)
	if err == nil {
		return res
	}
	if errors.Is(err, compress.ErrNothingToCompress) {
		return nil
	}
	g.logger.Warn("compression failed, falling back",
		zap.String("compressor", g.compressor.Name()),
		zap.Int("overflow", len(overflow)),
		zap.Error(err))

	if g.fallback == nil || g.fallback == g.compressor {
		return nil
	}
	res, err = g.fallback.Compress(ctx, overflow, target)
	if err != nil {
		g.logger.Error("fallback compression failed",
			zap.String("compressor", g.fallback.Name()),
			zap.Error(err))
		return nil
	}
	return res
}
