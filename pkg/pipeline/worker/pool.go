// Package worker provides the asynchronous worker pool that drives capture
// extraction in the background.
//
// The pool decouples extraction from the intake hot path: submitting a
// capture returns as soon as the row is queued, and the pool's workers pick
// it up afterwards.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 2 * time.Minute
)

// Job is a unit of work for the worker pool to execute against. Jobs carry
// only the capture ID; workers re-read the capture from storage so a stale
// snapshot can never be processed.
type Job struct {
	CaptureID string
}

// Handler processes a single job. The context carries the per-job timeout.
type Handler func(ctx context.Context, job Job) error

// Config is the configuration options for the worker pool.
type Config struct {
	// Handler is invoked once per dequeued job.
	Handler Handler

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single job's execution.
	JobTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes extraction jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Handler == nil {
		return nil, fmt.Errorf("worker pool requires a handler")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full. A dropped job is
// not lost: its capture stays queued in storage and a later retry or sweep
// can resubmit it.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("capture_id", job.CaptureID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("capture_id", job.CaptureID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("extraction worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Handler(ctx, job); err != nil {
		p.logger.Error("async extraction failed",
			zap.String("capture_id", job.CaptureID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("capture processed",
		zap.String("capture_id", job.CaptureID),
	)
}
