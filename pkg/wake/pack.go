// Package wake assembles wake prompts: token-budgeted textual artifacts
// built from a profile's memories for injection into a new AI session.
//
// Nothing in this package persists or mutates state. Generation is a pure
// function of its inputs, so the same memory set, category selection, and
// budget always yield a byte-identical artifact.
package wake

import (
	"sort"

	"github.com/reveriehq/reverie/pkg/memory"
)

// PackResult is the outcome of budget packing.
type PackResult struct {
	// Selected holds the memories that fit the budget, in packing order.
	Selected []*memory.Memory

	// TotalTokens is the cumulative token cost of Selected.
	TotalTokens int

	// Remainder holds filtered memories that did not fit, in priority
	// order, so a caller can decide whether to compress them. Never
	// silently dropped.
	Remainder []*memory.Memory
}

// Pack selects the subset of mems that fits within budget.
//
// Memories are filtered to the selected categories, ordered by importance
// descending with ties broken by recency descending (the ordering decides
// which memories survive truncation, so it is a deliberate design choice,
// not incidental), then accepted greedily while the cumulative token cost
// stays within budget. This is a bounded greedy knapsack by a single
// priority key: determinism is the requirement, optimality is not.
func Pack(mems []*memory.Memory, categories []memory.Category, budget int) PackResult {
	selected := make(map[memory.Category]bool, len(categories))
	for _, c := range categories {
		selected[c] = true
	}

	var candidates []*memory.Memory
	for _, m := range mems {
		if selected[m.Category] {
			candidates = append(candidates, m)
		}
	}

	// Sort a copy so input order never influences the result. The final
	// ID tiebreak makes the ordering a total one.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	// Acceptance stops at the first memory that overflows the budget.
	// Everything after it joins the remainder even if a later, smaller
	// memory would still fit: skipping ahead would let a low-importance
	// memory displace a high-importance one.
	result := PackResult{}
	for i, m := range candidates {
		cost := m.PackTokens()
		if result.TotalTokens+cost > budget {
			result.Remainder = append(result.Remainder, candidates[i:]...)
			break
		}
		result.Selected = append(result.Selected, m)
		result.TotalTokens += cost
	}

	return result
}
