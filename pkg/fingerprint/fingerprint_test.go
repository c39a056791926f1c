package fingerprint

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	It("collapses runs of whitespace to single spaces", func() {
		Expect(Normalize("a  b\t\tc\n\nd")).To(Equal("a b c d"))
	})

	It("trims leading and trailing whitespace", func() {
		Expect(Normalize("  hello world \n")).To(Equal("hello world"))
	})

	It("lowercases the text", func() {
		Expect(Normalize("Hello WORLD")).To(Equal("hello world"))
	})
})

var _ = Describe("Fingerprint", func() {
	It("is deterministic", func() {
		Expect(Fingerprint("some transcript")).To(Equal(Fingerprint("some transcript")))
	})

	It("is identical for texts that normalize identically", func() {
		a := Fingerprint("User says their dog Max turned 5 today")
		b := Fingerprint("  user says   their dog max\nturned 5 today  ")
		Expect(a).To(Equal(b))
	})

	It("differs for distinct transcripts", func() {
		Expect(Fingerprint("first conversation")).NotTo(Equal(Fingerprint("second conversation")))
	})

	It("produces a hex-encoded sha256 digest", func() {
		Expect(Fingerprint("anything")).To(HaveLen(64))
		Expect(Fingerprint("anything")).To(MatchRegexp(`^[0-9a-f]{64}$`))
	})
})
