package tokens

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Heuristic", func() {
	var est *Heuristic

	BeforeEach(func() {
		est = NewHeuristic()
	})

	It("returns zero for the empty string", func() {
		Expect(est.Estimate("")).To(Equal(0))
	})

	It("returns at least one token for non-empty text", func() {
		Expect(est.Estimate("a")).To(BeNumerically(">=", 1))
	})

	It("is deterministic", func() {
		text := "the user mentioned their dog Max turned five today"
		Expect(est.Estimate(text)).To(Equal(est.Estimate(text)))
	})

	It("grows with text length", func() {
		short := est.Estimate("a few words here")
		long := est.Estimate(strings.Repeat("a few words here ", 50))
		Expect(long).To(BeNumerically(">", short))
	})

	It("is loosely additive under concatenation", func() {
		a := "the first half of a sentence about work"
		b := " and the second half about hobbies and preferences"
		sum := est.Estimate(a) + est.Estimate(b)
		joined := est.Estimate(a + b)

		// Boundary effects allowed, gross divergence is not.
		Expect(joined).To(BeNumerically("~", sum, sum/4+2))
	})
})
