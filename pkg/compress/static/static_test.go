package static

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reveriehq/reverie/pkg/compress"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/tokens"
)

var _ = Describe("Static Compressor", func() {
	var (
		driver *Driver
		ctx    context.Context
	)

	mem := func(id string, cat memory.Category, importance int, content string) *memory.Memory {
		return &memory.Memory{
			ID:         id,
			ProfileID:  "prof-1",
			Category:   cat,
			Content:    content,
			Importance: importance,
			Verbatim:   content,
			CreatedAt:  time.Now().UTC(),
		}
	}

	BeforeEach(func() {
		driver = NewDriver(tokens.NewHeuristic())
		ctx = context.Background()
	})

	It("rejects an empty input set", func() {
		_, err := driver.Compress(ctx, nil, 100)
		Expect(errors.Is(err, compress.ErrNothingToCompress)).To(BeTrue())
	})

	It("keeps one representative fact per category", func() {
		mems := []*memory.Memory{
			mem("m1", memory.CategoryWork, 2, "started a new job at the hospital"),
			mem("m2", memory.CategoryWork, 5, "got promoted to charge nurse"),
			mem("m3", memory.CategoryHobbies, 3, "started painting watercolors"),
		}

		result, err := driver.Compress(ctx, mems, 1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Categories).To(Equal([]memory.Category{memory.CategoryWork, memory.CategoryHobbies}))
		Expect(result.Text).To(ContainSubstring("charge nurse"))
		Expect(result.Text).To(ContainSubstring("watercolors"))
		Expect(result.Text).NotTo(ContainSubstring("hospital"))
	})

	It("never fabricates content", func() {
		mems := []*memory.Memory{
			mem("m1", memory.CategoryPreferences, 3, "their favorite meal is ramen"),
		}

		result, err := driver.Compress(ctx, mems, 1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("[preferences] their favorite meal is ramen"))
	})

	It("is deterministic", func() {
		mems := []*memory.Memory{
			mem("m1", memory.CategoryWork, 4, "works night shifts now"),
			mem("m2", memory.CategoryEmotional, 5, "felt proud after the marathon"),
		}

		first, err := driver.Compress(ctx, mems, 1000)
		Expect(err).NotTo(HaveOccurred())
		second, err := driver.Compress(ctx, mems, 1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("keeps at least one line even under an impossible target", func() {
		mems := []*memory.Memory{
			mem("m1", memory.CategoryWork, 4, "works night shifts now"),
			mem("m2", memory.CategoryHobbies, 2, "collects vinyl records"),
		}

		result, err := driver.Compress(ctx, mems, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Categories).To(HaveLen(1))
		Expect(result.Text).NotTo(BeEmpty())
	})
})
