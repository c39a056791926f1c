// Package static provides a deterministic, offline extraction driver.
//
// The same transcript always yields the same candidates, which is what the
// pipeline tests rely on. Extraction quality is keyword-grade only; the
// driver exists so the system runs end to end without a language model and
// so tests exercise the pipeline against the same structural guarantees the
// production driver provides.
package static

import (
	"context"
	"strings"

	"github.com/reveriehq/reverie/pkg/extract"
	"github.com/reveriehq/reverie/pkg/memory"
)

// Driver implements extract.Extractor with rule-based extraction.
type Driver struct{}

// NewDriver creates a static extraction driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns the canonical driver name.
func (d *Driver) Name() string {
	return "static"
}

var emotionWords = []string{
	"cried", "cry", "tears", "happy", "sad", "love", "loves", "miss",
	"excited", "scared", "proud", "angry", "lonely",
}

var categoryWords = map[memory.Category][]string{
	memory.CategoryWork: {
		"work", "job", "boss", "project", "meeting", "office", "deadline",
		"promotion", "coworker",
	},
	memory.CategoryHobbies: {
		"hobby", "game", "games", "paint", "painting", "guitar", "hiking",
		"reading", "baking", "garden",
	},
	memory.CategoryRelationships: {
		"friend", "mom", "dad", "mother", "father", "sister", "brother",
		"partner", "wife", "husband", "dog", "cat", "pet", "daughter", "son",
	},
	memory.CategoryPreferences: {
		"favorite", "favourite", "prefer", "prefers", "likes", "hates",
		"always", "never",
	},
}

// Extract derives one candidate per clause of the transcript. Clauses are
// split on sentence punctuation; each becomes its own verbatim excerpt.
func (d *Driver) Extract(_ context.Context, rawText string, _ extract.ProfileContext) ([]extract.Candidate, error) {
	clauses := splitClauses(rawText)

	candidates := make([]extract.Candidate, 0, len(clauses))
	for _, clause := range clauses {
		candidates = append(candidates, candidateFor(clause))
	}

	return candidates, nil
}

func candidateFor(clause string) extract.Candidate {
	lower := strings.ToLower(clause)

	// Scan categories in canonical order so the same clause always lands
	// in the same category.
	category := memory.CategoryEmotional
	for _, cat := range memory.Categories() {
		if containsAny(lower, categoryWords[cat]) {
			category = cat
			break
		}
	}

	importance := 3
	var emotionalNote *string
	if containsAny(lower, emotionWords) {
		note := "carried notable emotional weight"
		emotionalNote = &note
		importance = 4
	}

	return extract.Candidate{
		Category:      string(category),
		Content:       clause,
		EmotionalNote: emotionalNote,
		Importance:    importance,
		Verbatim:      clause,
	}
}

// splitClauses breaks a transcript into sentence-sized excerpts, dropping
// fragments too short to be a fact on their own.
func splitClauses(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})

	var clauses []string
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if len(c) >= 12 {
			clauses = append(clauses, c)
		}
	}

	return clauses
}

// containsAny reports whether any of words appears as a whole word in the
// lowercased text.
func containsAny(lower string, words []string) bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})

	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}

	return false
}
