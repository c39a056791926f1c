package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// recorder collects the jobs a pool's handler sees.
// Callers should "wp.Close()" to drain enqueued jobs before asserting.
type recorder struct {
	mu   sync.Mutex
	seen []Job
}

func (r *recorder) handle(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job)
	return nil
}

func (r *recorder) jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, len(r.seen))
	copy(out, r.seen)
	return out
}

var _ = Describe("Worker Pool", func() {
	var (
		rec *recorder
	)

	BeforeEach(func() {
		rec = &recorder{}
	})

	Describe("NewPool", func() {
		It("requires a handler", func() {
			_, err := NewPool(&Config{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp, err := NewPool(&Config{
				Handler: rec.handle,
				Logger:  zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			ok := wp.Enqueue(Job{CaptureID: "cap-1"})
			Expect(ok).To(BeTrue())
			wp.Close()

			Expect(rec.jobs()).To(HaveLen(1))
			Expect(rec.jobs()[0].CaptureID).To(Equal("cap-1"))
		})

		It("returns false when the queue is full", func() {
			block := make(chan struct{})
			wp, err := NewPool(&Config{
				Handler: func(_ context.Context, _ Job) error {
					<-block
					return nil
				},
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			// First job occupies the worker, second fills the queue.
			// By then at the latest, a third enqueue must report a drop.
			dropped := false
			for i := 0; i < 3; i++ {
				if !wp.Enqueue(Job{CaptureID: "cap"}) {
					dropped = true
					break
				}
			}
			Expect(dropped).To(BeTrue())

			close(block)
			wp.Close()
		})
	})

	Describe("Close", func() {
		It("drains in-flight jobs before returning", func() {
			wp, err := NewPool(&Config{
				Handler:    rec.handle,
				NumWorkers: 2,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 20; i++ {
				Expect(wp.Enqueue(Job{CaptureID: "cap"})).To(BeTrue())
			}
			wp.Close()

			Expect(rec.jobs()).To(HaveLen(20))
		})
	})

	Describe("job timeout", func() {
		It("passes a deadline-bearing context to the handler", func() {
			var hadDeadline bool
			var mu sync.Mutex
			wp, err := NewPool(&Config{
				Handler: func(ctx context.Context, _ Job) error {
					mu.Lock()
					defer mu.Unlock()
					_, hadDeadline = ctx.Deadline()
					return nil
				},
				JobTimeout: time.Second,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(Job{CaptureID: "cap"})
			wp.Close()

			mu.Lock()
			defer mu.Unlock()
			Expect(hadDeadline).To(BeTrue())
		})
	})

	Describe("handler errors", func() {
		It("keeps processing subsequent jobs", func() {
			calls := 0
			var mu sync.Mutex
			wp, err := NewPool(&Config{
				Handler: func(_ context.Context, _ Job) error {
					mu.Lock()
					defer mu.Unlock()
					calls++
					if calls == 1 {
						return errors.New("transient upstream failure")
					}
					return nil
				},
				NumWorkers: 1,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(Job{CaptureID: "cap-1"})
			wp.Enqueue(Job{CaptureID: "cap-2"})
			wp.Close()

			mu.Lock()
			defer mu.Unlock()
			Expect(calls).To(Equal(2))
		})
	})
})
