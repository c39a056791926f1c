package wake_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reveriehq/reverie/pkg/compress"
	compressstatic "github.com/reveriehq/reverie/pkg/compress/static"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/tokens"
	"github.com/reveriehq/reverie/pkg/wake"
)

type failingCompressor struct{}

func (failingCompressor) Name() string { return "failing" }

func (failingCompressor) Compress(_ context.Context, _ []*memory.Memory, _ int) (*compress.Result, error) {
	return nil, errors.New("model unavailable")
}

var _ = Describe("Generator", func() {
	var (
		ctx       context.Context
		generator *wake.Generator
		base      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		fallback := compressstatic.NewDriver(tokens.NewHeuristic())
		generator = wake.NewGenerator(fallback, fallback, nil)
		base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	It("produces byte-identical output for identical inputs", func() {
		mems := []*memory.Memory{
			packMemory("a", memory.CategoryWork, 5, 40, base),
			packMemory("b", memory.CategoryEmotional, 4, 30, base.Add(time.Minute)),
			packMemory("c", memory.CategoryHobbies, 2, 600, base.Add(2*time.Minute)),
		}

		first, err := generator.Generate(ctx, "Dana", mems, memory.Categories(), 200)
		Expect(err).NotTo(HaveOccurred())
		second, err := generator.Generate(ctx, "Dana", mems, memory.Categories(), 200)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.Text).To(Equal(first.Text))
		Expect(second.TokenCount).To(Equal(first.TokenCount))
	})

	It("condenses overflow instead of dropping it", func() {
		mems := []*memory.Memory{
			packMemory("kept", memory.CategoryWork, 5, 40, base),
			packMemory("overflow", memory.CategoryWork, 3, 900, base),
		}

		artifact, err := generator.Generate(ctx, "Dana", mems, []memory.Category{memory.CategoryWork}, 100)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifact.Text).To(ContainSubstring("verbatim for kept"))
		Expect(artifact.Text).To(ContainSubstring("## Earlier context (condensed)"))
		Expect(artifact.Text).To(ContainSubstring("memory overflow"))
		Expect(artifact.MemoryCount).To(Equal(1))
	})

	It("falls back to the deterministic compressor when the primary fails", func() {
		generator = wake.NewGenerator(failingCompressor{}, compressstatic.NewDriver(tokens.NewHeuristic()), nil)
		mems := []*memory.Memory{
			packMemory("kept", memory.CategoryWork, 5, 40, base),
			packMemory("overflow", memory.CategoryWork, 3, 900, base),
		}

		artifact, err := generator.Generate(ctx, "Dana", mems, []memory.Category{memory.CategoryWork}, 100)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifact.Text).To(ContainSubstring("## Earlier context (condensed)"))
	})

	It("omits the condensed section when both compressors fail", func() {
		generator = wake.NewGenerator(failingCompressor{}, failingCompressor{}, nil)
		mems := []*memory.Memory{
			packMemory("kept", memory.CategoryWork, 5, 40, base),
			packMemory("overflow", memory.CategoryWork, 3, 900, base),
		}

		artifact, err := generator.Generate(ctx, "Dana", mems, []memory.Category{memory.CategoryWork}, 100)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifact.Text).NotTo(ContainSubstring("## Earlier context (condensed)"))
		Expect(artifact.MemoryCount).To(Equal(1))
	})

	It("defaults the category selection to all categories", func() {
		mems := []*memory.Memory{
			packMemory("p", memory.CategoryPreferences, 3, 10, base),
			packMemory("r", memory.CategoryRelationships, 3, 10, base),
		}

		artifact, err := generator.Generate(ctx, "Dana", mems, nil, 500)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifact.MemoryCount).To(Equal(2))
		Expect(artifact.Text).To(ContainSubstring("## Preferences"))
		Expect(artifact.Text).To(ContainSubstring("## Relationships"))
	})
})
