package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"

	"github.com/reveriehq/reverie/pkg/eventstream"
	"github.com/reveriehq/reverie/pkg/extract"
	extractstatic "github.com/reveriehq/reverie/pkg/extract/static"
	"github.com/reveriehq/reverie/pkg/fingerprint"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/pipeline"
	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/storage/inmemory"
	"github.com/reveriehq/reverie/pkg/tokens"
)

const dogText = "user says their dog Max turned 5 today, they cried a little"

// recordingPublisher collects published capture events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.CaptureProcessedEvent
}

func (r *recordingPublisher) PublishCaptureProcessed(_ context.Context, event *eventstream.CaptureProcessedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) all() []*eventstream.CaptureProcessedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*eventstream.CaptureProcessedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// flakyExtractor fails transiently a fixed number of times before
// delegating to the static driver.
type flakyExtractor struct {
	mu       sync.Mutex
	failures int
	attempts int
	inner    extract.Extractor
}

func (f *flakyExtractor) Name() string { return "flaky" }

func (f *flakyExtractor) Extract(ctx context.Context, rawText string, profile extract.ProfileContext) ([]extract.Candidate, error) {
	f.mu.Lock()
	f.attempts++
	fail := f.attempts <= f.failures
	f.mu.Unlock()

	if fail {
		return nil, extract.Transient(errors.New("upstream timeout"))
	}
	return f.inner.Extract(ctx, rawText, profile)
}

func (f *flakyExtractor) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

var _ = Describe("Pipeline", func() {
	var (
		ctx     context.Context
		store   *inmemory.Driver
		events  *recordingPublisher
		profile *memory.Profile
	)

	newPipeline := func(extractor extract.Extractor) *pipeline.Pipeline {
		p, err := pipeline.New(&pipeline.Config{
			Store:        store,
			Extractor:    extractor,
			Estimator:    tokens.NewHeuristic(),
			Events:       events,
			NumWorkers:   1,
			RetryBackoff: time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		events = &recordingPublisher{}

		profile = &memory.Profile{
			ID:        uuid.NewString(),
			AccountID: "acct-1",
			Name:      "Dana",
			CreatedAt: time.Now().UTC(),
		}
		Expect(store.CreateProfile(ctx, profile)).To(Succeed())
	})

	Describe("Submit", func() {
		It("rejects raw text below the minimum length without creating a capture", func() {
			p := newPipeline(extractstatic.NewDriver())
			defer p.Close()

			_, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   "hi there",
			})

			var verr pipeline.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Reason).To(Equal(pipeline.ReasonTooShort))

			captures, _, err := store.ListCaptures(ctx, profile.ID, "", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(captures).To(BeEmpty())
		})

		It("rejects raw text above the maximum length", func() {
			p := newPipeline(extractstatic.NewDriver())
			defer p.Close()

			long := make([]byte, pipeline.MaxRawTextRunes+1)
			for i := range long {
				long[i] = 'a'
			}

			_, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   string(long),
			})

			var verr pipeline.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Reason).To(Equal(pipeline.ReasonTooLong))
		})

		It("rejects an unknown profile reference", func() {
			p := newPipeline(extractstatic.NewDriver())
			defer p.Close()

			_, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: uuid.NewString(),
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})

			var verr pipeline.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Reason).To(Equal(pipeline.ReasonInvalidProfile))
		})

		It("rejects a request without a method", func() {
			p := newPipeline(extractstatic.NewDriver())
			defer p.Close()

			_, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				RawText:   dogText,
			})

			var verr pipeline.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Reason).To(Equal(pipeline.ReasonMissingMethod))
		})

		It("processes a capture end to end", func() {
			p := newPipeline(extractstatic.NewDriver())

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(capture.Status).To(Equal(memory.StatusQueued))
			Expect(capture.Fingerprint).To(Equal(fingerprint.Fingerprint(dogText)))

			p.Close()

			processed, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed.Status).To(Equal(memory.StatusCompleted))
			Expect(processed.MemoryCount).To(Equal(1))

			mems, err := store.AllMemories(ctx, profile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mems).To(HaveLen(1))
			Expect(mems[0].Content).To(ContainSubstring("Max"))
			Expect(mems[0].Content).To(ContainSubstring("5"))
			Expect(mems[0].Category).To(Equal(memory.CategoryRelationships))
			Expect(mems[0].EmotionalNote).NotTo(BeNil())
			Expect(mems[0].VerbatimTokens).To(BeNumerically(">", 0))
			Expect(mems[0].CaptureID).NotTo(BeNil())
			Expect(*mems[0].CaptureID).To(Equal(capture.ID))
		})

		It("short-circuits a duplicate submission to the existing capture", func() {
			p := newPipeline(extractstatic.NewDriver())

			first, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())

			// Same text with different spacing normalizes to the same
			// fingerprint.
			second, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   "user says their  dog Max turned 5 today,  they cried a little",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))

			p.Close()

			captures, _, err := store.ListCaptures(ctx, profile.ID, "", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(captures).To(HaveLen(1))
		})

		It("marks the capture failed when extraction yields nothing", func() {
			p := newPipeline(extractstatic.NewDriver())

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   "aa. bb. cc. dd. ee. ff. gg. hh.",
			})
			Expect(err).NotTo(HaveOccurred())

			p.Close()

			failed, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(failed.Status).To(Equal(memory.StatusFailed))
			Expect(failed.ErrorDetail).NotTo(BeEmpty())
			Expect(failed.ErrorDetail).NotTo(ContainSubstring("aa. bb."))
		})

		It("publishes a terminal event for processed captures", func() {
			p := newPipeline(extractstatic.NewDriver())

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())

			p.Close()

			published := events.all()
			Expect(published).To(HaveLen(1))
			Expect(published[0].EventType).To(Equal(eventstream.EventTypeCaptureProcessed))
			Expect(published[0].CaptureID).To(Equal(capture.ID))
			Expect(published[0].ProfileID).To(Equal(profile.ID))
			Expect(published[0].Status).To(Equal(string(memory.StatusCompleted)))
			Expect(published[0].MemoryCount).To(Equal(1))
		})
	})

	Describe("transient failures", func() {
		It("retries and succeeds within the attempt budget", func() {
			flaky := &flakyExtractor{failures: 2, inner: extractstatic.NewDriver()}
			p := newPipeline(flaky)

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())

			p.Close()

			Expect(flaky.attemptCount()).To(Equal(3))

			processed, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed.Status).To(Equal(memory.StatusCompleted))
		})

		It("fails the capture once attempts are exhausted", func() {
			flaky := &flakyExtractor{failures: 10, inner: extractstatic.NewDriver()}
			p := newPipeline(flaky)

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())

			p.Close()

			Expect(flaky.attemptCount()).To(Equal(3))

			failed, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(failed.Status).To(Equal(memory.StatusFailed))
		})
	})

	Describe("Retry", func() {
		It("requeues a failed capture and replaces the memory set on success", func() {
			flaky := &flakyExtractor{failures: 3, inner: extractstatic.NewDriver()}
			p := newPipeline(flaky)

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())
			p.Close()

			failed, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(failed.Status).To(Equal(memory.StatusFailed))

			// The flaky budget is spent, so the retry goes through.
			p2 := newPipeline(flaky)
			retried, err := p2.Retry(ctx, profile.ID, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retried.Status).NotTo(Equal(memory.StatusFailed))
			p2.Close()

			done, err := store.GetCapture(ctx, capture.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Status).To(Equal(memory.StatusCompleted))
			Expect(done.MemoryCount).To(Equal(1))
			Expect(done.ErrorDetail).To(BeEmpty())

			mems, err := store.AllMemories(ctx, profile.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mems).To(HaveLen(1))
		})

		It("refuses to retry a capture that is not terminal", func() {
			p := newPipeline(extractstatic.NewDriver())
			defer p.Close()

			queued := &memory.Capture{
				ID:          uuid.NewString(),
				ProfileID:   profile.ID,
				Method:      memory.MethodDirectText,
				RawText:     dogText,
				Fingerprint: fingerprint.Fingerprint(dogText),
				Status:      memory.StatusProcessing,
				CreatedAt:   time.Now().UTC(),
				UpdatedAt:   time.Now().UTC(),
			}
			Expect(store.CreateCapture(ctx, queued)).To(Succeed())

			_, err := p.Retry(ctx, profile.ID, queued.ID)

			var conflict storage.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("treats a retry against someone else's capture as not found", func() {
			p := newPipeline(extractstatic.NewDriver())

			capture, err := p.Submit(ctx, pipeline.IntakeRequest{
				ProfileID: profile.ID,
				Method:    memory.MethodDirectText,
				RawText:   dogText,
			})
			Expect(err).NotTo(HaveOccurred())
			p.Close()

			other := &memory.Profile{
				ID:        uuid.NewString(),
				AccountID: "acct-2",
				Name:      "Kai",
				CreatedAt: time.Now().UTC(),
			}
			Expect(store.CreateProfile(ctx, other)).To(Succeed())

			p2 := newPipeline(extractstatic.NewDriver())
			defer p2.Close()

			_, err = p2.Retry(ctx, other.ID, capture.ID)

			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
		})
	})
})
