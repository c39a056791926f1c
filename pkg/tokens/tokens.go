// Package tokens maps text spans to estimated token costs.
//
// Estimates run per-memory on every wake prompt generation, so every
// implementation must be cheap and local: no network calls, no disk reads
// after construction. Exact tokenizer parity with the downstream model is
// not required; the packer only needs a consistent, loosely additive cost
// function.
package tokens

// Estimator maps a text span to a non-negative integer token cost.
//
// Implementations must be deterministic and loosely monotonic under
// concatenation: Estimate(a+b) is close to Estimate(a)+Estimate(b), though
// exact equality is not guaranteed because real tokenization has boundary
// effects.
type Estimator interface {
	Estimate(text string) int
}
