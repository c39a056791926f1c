package static

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reveriehq/reverie/pkg/extract"
	"github.com/reveriehq/reverie/pkg/memory"
)

var _ = Describe("Static Extractor", func() {
	var (
		driver *Driver
		ctx    context.Context
	)

	profile := extract.ProfileContext{ProfileID: "prof-1", ProfileName: "Aria"}

	BeforeEach(func() {
		driver = NewDriver()
		ctx = context.Background()
	})

	It("returns identical candidates for identical input", func() {
		text := "user says their dog Max turned 5 today, they cried a little"

		first, err := driver.Extract(ctx, text, profile)
		Expect(err).NotTo(HaveOccurred())
		second, err := driver.Extract(ctx, text, profile)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
	})

	It("derives a relationship memory with emotional weight from the dog transcript", func() {
		text := "user says their dog Max turned 5 today, they cried a little"

		candidates, err := driver.Extract(ctx, text, profile)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))

		c := candidates[0]
		Expect(memory.Category(c.Category).Valid()).To(BeTrue())
		Expect(c.Category).To(BeElementOf("relationships", "emotional"))
		Expect(c.Content).To(ContainSubstring("Max"))
		Expect(c.Content).To(ContainSubstring("5"))
		Expect(c.EmotionalNote).NotTo(BeNil())
		Expect(c.Importance).To(SatisfyAll(BeNumerically(">=", 1), BeNumerically("<=", 5)))
		Expect(c.Verbatim).NotTo(BeEmpty())
	})

	It("produces one candidate per sentence", func() {
		text := "They started a new job at the hospital. Their favorite meal is ramen."

		candidates, err := driver.Extract(ctx, text, profile)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(2))
		Expect(candidates[0].Category).To(Equal("work"))
		Expect(candidates[1].Category).To(Equal("preferences"))
	})

	It("ignores fragments too short to hold a fact", func() {
		candidates, err := driver.Extract(ctx, "Hi. Ok. They adopted a cat named Luna yesterday.", profile)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].Content).To(ContainSubstring("Luna"))
	})

	It("passes its own output through batch validation", func() {
		text := "They love hiking in the mountains every weekend. Work has been stressful lately."

		candidates, err := driver.Extract(ctx, text, profile)
		Expect(err).NotTo(HaveOccurred())

		v, err := extract.ValidateBatch(text, candidates)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Accepted).To(HaveLen(len(candidates)))
		Expect(v.LowConfidence).To(BeZero())
	})
})
