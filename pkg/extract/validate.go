package extract

import (
	"strings"

	"github.com/reveriehq/reverie/pkg/fingerprint"
	"github.com/reveriehq/reverie/pkg/memory"
)

// Issue records why a single candidate was dropped during validation.
type Issue struct {
	Index  int
	Reason string
}

// Validated is the result of screening an extraction batch.
type Validated struct {
	// Accepted holds the candidates that passed field-level validation.
	Accepted []Candidate

	// Dropped records candidates rejected by field-level validation.
	// One malformed entry never discards an otherwise good batch.
	Dropped []Issue

	// LowConfidence counts accepted candidates whose verbatim text does
	// not appear in the input. Logged, not rejected: exact substring
	// matching is brittle across paraphrase.
	LowConfidence int
}

// ValidateBatch screens an extraction response. The envelope must contain
// at least one candidate; individual candidates failing field checks are
// dropped, and a batch where every candidate fails is an envelope failure.
func ValidateBatch(rawText string, candidates []Candidate) (*Validated, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyBatch
	}

	normalized := fingerprint.Normalize(rawText)
	result := &Validated{}

	for i, c := range candidates {
		if reason := validateCandidate(c); reason != "" {
			result.Dropped = append(result.Dropped, Issue{Index: i, Reason: reason})
			continue
		}

		if !strings.Contains(normalized, fingerprint.Normalize(c.Verbatim)) {
			result.LowConfidence++
		}

		result.Accepted = append(result.Accepted, c)
	}

	if len(result.Accepted) == 0 {
		return nil, ErrEmptyBatch
	}

	return result, nil
}

// validateCandidate returns a non-empty reason when the candidate fails
// field-level validation. Category values outside the fixed set are a
// validation error, never silently coerced.
func validateCandidate(c Candidate) string {
	if !memory.Category(c.Category).Valid() {
		return "invalid category: " + c.Category
	}
	if strings.TrimSpace(c.Content) == "" {
		return "empty content"
	}
	if !memory.ValidImportance(c.Importance) {
		return "importance out of range"
	}
	if strings.TrimSpace(c.Verbatim) == "" {
		return "empty verbatim excerpt"
	}
	if c.SpeakerConfidence != nil && (*c.SpeakerConfidence < 0 || *c.SpeakerConfidence > 1) {
		return "speaker confidence out of range"
	}

	return ""
}
