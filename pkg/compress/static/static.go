// Package static provides a deterministic, offline compression driver.
//
// It keeps the highest-importance memory per category and renders each as a
// single line, trimming lowest-importance categories first when the result
// still exceeds the target. By construction it never fabricates content:
// every line is a memory's own factual statement.
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/reveriehq/reverie/pkg/compress"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/tokens"
)

// Driver implements compress.Compressor with representative-fact selection.
type Driver struct {
	estimator tokens.Estimator
}

// NewDriver creates a static compression driver.
func NewDriver(estimator tokens.Estimator) *Driver {
	return &Driver{estimator: estimator}
}

// Name returns the canonical driver name.
func (d *Driver) Name() string {
	return "static"
}

// Compress keeps one representative memory per category present in the
// input. Categories are only dropped when even one line per category does
// not fit, lowest importance first, and at least one line always survives.
func (d *Driver) Compress(_ context.Context, mems []*memory.Memory, targetTokens int) (*compress.Result, error) {
	if len(mems) == 0 {
		return nil, compress.ErrNothingToCompress
	}

	// Pick the highest-importance memory per category, most recent wins
	// ties, matching the packer's ordering decision.
	best := make(map[memory.Category]*memory.Memory)
	for _, m := range mems {
		cur, ok := best[m.Category]
		if !ok || m.Importance > cur.Importance ||
			(m.Importance == cur.Importance && m.CreatedAt.After(cur.CreatedAt)) {
			best[m.Category] = m
		}
	}

	type line struct {
		category memory.Category
		text     string
		cost     int
	}

	var lines []line
	for _, cat := range memory.Categories() {
		m, ok := best[cat]
		if !ok {
			continue
		}

		text := fmt.Sprintf("[%s] %s", cat, m.Content)
		lines = append(lines, line{category: cat, text: text, cost: d.estimator.Estimate(text)})
	}

	// Trim whole categories from the end (lowest canonical priority)
	// while over target, but never below one line.
	total := 0
	for _, l := range lines {
		total += l.cost
	}
	for len(lines) > 1 && total > targetTokens {
		total -= lines[len(lines)-1].cost
		lines = lines[:len(lines)-1]
	}

	parts := make([]string, len(lines))
	cats := make([]memory.Category, len(lines))
	for i, l := range lines {
		parts[i] = l.text
		cats[i] = l.category
	}

	text := strings.Join(parts, "\n")

	return &compress.Result{
		Text:       text,
		Tokens:     d.estimator.Estimate(text),
		Categories: cats,
	}, nil
}
