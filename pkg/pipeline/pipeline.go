// Package pipeline implements capture intake and the asynchronous
// extraction flow behind it.
//
// Intake is the single entry point for every inbound channel: adapters
// normalize whatever they receive (direct text, image-derived transcripts,
// forwarded messages, programmatic submissions) into an IntakeRequest and
// submit it here. Submission returns as soon as the capture row is queued;
// the pool's workers perform extraction afterwards and are the only
// writers of capture status and memory sets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/eventstream"
	"github.com/reveriehq/reverie/pkg/eventstream/nop"
	"github.com/reveriehq/reverie/pkg/extract"
	"github.com/reveriehq/reverie/pkg/fingerprint"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/pipeline/worker"
	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/tokens"
)

// Raw text length bounds, in runes. Below the minimum there is nothing
// worth extracting; above the maximum a single capture could monopolize an
// extraction call.
const (
	MinRawTextRunes = 20
	MaxRawTextRunes = 100_000
)

// ValidationReason classifies an intake rejection.
type ValidationReason string

const (
	ReasonTooShort       ValidationReason = "raw_text_too_short"
	ReasonTooLong        ValidationReason = "raw_text_too_long"
	ReasonInvalidProfile ValidationReason = "invalid_profile"
	ReasonMissingMethod  ValidationReason = "missing_method"
)

// ValidationError is returned by Submit when the request fails intake
// validation. No capture row is created.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}

	return string(e.Reason) + ": " + e.Detail
}

// IntakeRequest is the normalized shape every capture adapter produces.
type IntakeRequest struct {
	ProfileID    string
	Method       memory.Method
	RawText      string
	PlatformHint string
}

// Config is the configuration options for the pipeline.
type Config struct {
	// Store is the persistence backend.
	Store storage.Driver

	// Extractor distills candidate memories from raw transcripts.
	Extractor extract.Extractor

	// Estimator caches per-memory token counts at write time.
	Estimator tokens.Estimator

	// Events receives capture lifecycle events. Defaults to a no-op
	// publisher.
	Events eventstream.Publisher

	// NumWorkers, QueueSize, and JobTimeout configure the worker pool.
	NumWorkers uint
	QueueSize  uint
	JobTimeout time.Duration

	// MaxAttempts bounds extraction retries per job (defaults to 3).
	MaxAttempts int

	// RetryBackoff is the base backoff between attempts (defaults to 1s,
	// doubling per attempt).
	RetryBackoff time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pipeline accepts captures and processes them asynchronously.
type Pipeline struct {
	store     storage.Driver
	extractor extract.Extractor
	estimator tokens.Estimator
	events    eventstream.Publisher
	pool      *worker.Pool
	logger    *zap.Logger

	maxAttempts int
	backoff     time.Duration
}

// New creates a Pipeline and starts its worker pool.
func New(c *Config) (*Pipeline, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("pipeline requires a storage driver")
	}

	if c.Extractor == nil {
		return nil, fmt.Errorf("pipeline requires an extractor")
	}

	if c.Estimator == nil {
		return nil, fmt.Errorf("pipeline requires a token estimator")
	}

	if c.Events == nil {
		c.Events = nop.NewPublisher()
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}

	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &Pipeline{
		store:       c.Store,
		extractor:   c.Extractor,
		estimator:   c.Estimator,
		events:      c.Events,
		logger:      c.Logger,
		maxAttempts: c.MaxAttempts,
		backoff:     c.RetryBackoff,
	}

	pool, err := worker.NewPool(&worker.Config{
		Handler:    p.handleJob,
		NumWorkers: c.NumWorkers,
		QueueSize:  c.QueueSize,
		JobTimeout: c.JobTimeout,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}

	p.pool = pool
	return p, nil
}

// Close drains in-flight extraction jobs and stops the workers.
func (p *Pipeline) Close() {
	p.pool.Close()
}

// Submit validates and records a capture, then schedules extraction.
//
// Submission is idempotent per (profile, normalized raw text): when a live
// capture already carries the same fingerprint, that capture is returned
// and no new row or job is created. A full worker queue does not fail the
// request; the capture stays queued in storage for a later retry.
func (p *Pipeline) Submit(ctx context.Context, req IntakeRequest) (*memory.Capture, error) {
	if req.Method == "" {
		return nil, ValidationError{Reason: ReasonMissingMethod}
	}

	runes := utf8.RuneCountInString(req.RawText)
	if runes < MinRawTextRunes {
		return nil, ValidationError{
			Reason: ReasonTooShort,
			Detail: fmt.Sprintf("%d runes, minimum %d", runes, MinRawTextRunes),
		}
	}
	if runes > MaxRawTextRunes {
		return nil, ValidationError{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("%d runes, maximum %d", runes, MaxRawTextRunes),
		}
	}

	if _, err := p.store.GetProfile(ctx, req.ProfileID); err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return nil, ValidationError{Reason: ReasonInvalidProfile, Detail: req.ProfileID}
		}
		return nil, fmt.Errorf("resolving profile: %w", err)
	}

	fp := fingerprint.Fingerprint(req.RawText)

	existing, err := p.store.FindCaptureByFingerprint(ctx, req.ProfileID, fp)
	if err == nil {
		p.logger.Debug("duplicate capture short-circuited",
			zap.String("profile_id", req.ProfileID),
			zap.String("capture_id", existing.ID),
		)
		return existing, nil
	}
	var nf storage.NotFoundError
	if !errors.As(err, &nf) {
		return nil, fmt.Errorf("fingerprint lookup: %w", err)
	}

	now := time.Now().UTC()
	capture := &memory.Capture{
		ID:           uuid.NewString(),
		ProfileID:    req.ProfileID,
		Method:       req.Method,
		RawText:      req.RawText,
		Fingerprint:  fp,
		Status:       memory.StatusQueued,
		PlatformHint: req.PlatformHint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.store.CreateCapture(ctx, capture); err != nil {
		return nil, fmt.Errorf("creating capture: %w", err)
	}

	p.pool.Enqueue(worker.Job{CaptureID: capture.ID})

	return capture, nil
}

// Retry requeues a terminal capture for another extraction attempt. A
// capture that is queued or processing is not eligible; the conflict
// propagates to the caller. Succeeding after a retry replaces the prior
// memory set entirely.
func (p *Pipeline) Retry(ctx context.Context, profileID, captureID string) (*memory.Capture, error) {
	if _, err := p.store.GetOwnedCapture(ctx, profileID, captureID); err != nil {
		return nil, err
	}

	err := p.store.TransitionCapture(ctx, captureID,
		[]memory.CaptureStatus{memory.StatusFailed, memory.StatusCompleted},
		memory.StatusQueued,
	)
	if err != nil {
		return nil, err
	}

	p.pool.Enqueue(worker.Job{CaptureID: captureID})

	return p.store.GetOwnedCapture(ctx, profileID, captureID)
}
