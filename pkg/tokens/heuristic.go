package tokens

import (
	"strings"
	"unicode/utf8"
)

// Heuristic estimates token counts without a tokenizer model. It blends a
// character-based estimate (English text averages roughly four characters
// per token) with a word count, which tracks BPE tokenizers closely enough
// for budget packing.
type Heuristic struct{}

// NewHeuristic creates a heuristic estimator.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Estimate returns the approximate token count for text.
func (h *Heuristic) Estimate(text string) int {
	if text == "" {
		return 0
	}

	chars := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))

	// Average of chars/4 and words*4/3, the two common rules of thumb.
	est := (chars/4 + words*4/3 + 1) / 2
	if est < 1 {
		est = 1
	}

	return est
}
