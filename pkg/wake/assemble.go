package wake

import (
	"fmt"
	"strings"

	"github.com/reveriehq/reverie/pkg/compress"
	"github.com/reveriehq/reverie/pkg/memory"
)

// condensedHeading marks the compressed-overflow section so a consuming
// model can tell condensed context from full-fidelity memories.
const condensedHeading = "## Earlier context (condensed)"

// Artifact is an assembled wake prompt.
type Artifact struct {
	Text              string
	TokenCount        int
	MemoryCount       int
	PerCategoryTokens map[memory.Category]int
}

// Assemble renders packed memories into the wake prompt text. Sections
// follow the canonical category order; within a section, memories keep
// their packing order. An empty category produces no section. The
// condensed section, when present, always trails the full-fidelity ones.
//
// TokenCount accounts for memory content and the condensed text, not the
// markdown scaffolding, matching how the budget was applied during packing.
func Assemble(packed []*memory.Memory, condensed *compress.Result, profileName string) Artifact {
	byCategory := make(map[memory.Category][]*memory.Memory)
	perCategory := make(map[memory.Category]int)
	total := 0
	for _, m := range packed {
		byCategory[m.Category] = append(byCategory[m.Category], m)
		cost := m.PackTokens()
		perCategory[m.Category] += cost
		total += cost
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Memories for %s\n", profileName)
	for _, cat := range memory.Categories() {
		section := byCategory[cat]
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", titleCase(string(cat)))
		for _, m := range section {
			fmt.Fprintf(&b, "- %s\n", m.PackText())
		}
	}

	if condensed != nil && condensed.Text != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", condensedHeading, condensed.Text)
		total += condensed.Tokens
	}

	return Artifact{
		Text:              b.String(),
		TokenCount:        total,
		MemoryCount:       len(packed),
		PerCategoryTokens: perCategory,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
