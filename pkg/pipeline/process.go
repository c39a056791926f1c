package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/eventstream"
	"github.com/reveriehq/reverie/pkg/extract"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/pipeline/worker"
	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/utils"
)

// failReasonMaxLen bounds the stored failure reason. Raw text never
// appears in it.
const failReasonMaxLen = 240

// handleJob is the worker pool handler. It claims the capture, runs
// extraction with bounded retries, and commits or fails the capture.
func (p *Pipeline) handleJob(ctx context.Context, job worker.Job) error {
	err := p.store.TransitionCapture(ctx, job.CaptureID,
		[]memory.CaptureStatus{memory.StatusQueued},
		memory.StatusProcessing,
	)
	if err != nil {
		var conflict storage.ConflictError
		if errors.As(err, &conflict) {
			// Another worker holds the capture, or a duplicate job
			// landed for one already processed. Nothing to do.
			p.logger.Debug("claim skipped",
				zap.String("capture_id", job.CaptureID),
				zap.String("status", conflict.Status),
			)
			return nil
		}
		return fmt.Errorf("claiming capture: %w", err)
	}

	capture, err := p.store.GetCapture(ctx, job.CaptureID)
	if err != nil {
		return fmt.Errorf("loading claimed capture: %w", err)
	}

	mems, err := p.extractMemories(ctx, capture)
	if err != nil {
		return p.fail(ctx, capture, err)
	}

	if err := p.store.CommitExtraction(ctx, capture.ID, mems); err != nil {
		return p.fail(ctx, capture, fmt.Errorf("committing extraction: %w", err))
	}

	p.publish(ctx, capture, memory.StatusCompleted, len(mems), "")

	return nil
}

// extractMemories runs the extractor with bounded retries and converts the
// validated candidates into memory rows. Only transient failures are
// retried; a deterministic failure surfaces immediately.
func (p *Pipeline) extractMemories(ctx context.Context, capture *memory.Capture) ([]*memory.Memory, error) {
	profile, err := p.store.GetProfile(ctx, capture.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	profileCtx := extract.ProfileContext{
		ProfileID:    profile.ID,
		ProfileName:  profile.Name,
		Method:       string(capture.Method),
		PlatformHint: capture.PlatformHint,
	}

	var candidates []extract.Candidate
	for attempt := 1; ; attempt++ {
		candidates, err = p.extractor.Extract(ctx, capture.RawText, profileCtx)
		if err == nil {
			break
		}

		if !extract.IsTransient(err) || attempt >= p.maxAttempts {
			return nil, fmt.Errorf("extraction: %w", err)
		}

		delay := p.backoff << (attempt - 1)
		delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		p.logger.Warn("extraction attempt failed, retrying",
			zap.String("capture_id", capture.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("extraction: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	validated, err := extract.ValidateBatch(capture.RawText, candidates)
	if err != nil {
		return nil, fmt.Errorf("validating extraction: %w", err)
	}

	for _, issue := range validated.Dropped {
		p.logger.Warn("candidate dropped",
			zap.String("capture_id", capture.ID),
			zap.Int("index", issue.Index),
			zap.String("reason", issue.Reason),
		)
	}
	if validated.LowConfidence > 0 {
		p.logger.Info("low-confidence verbatim excerpts",
			zap.String("capture_id", capture.ID),
			zap.Int("count", validated.LowConfidence),
		)
	}

	now := time.Now().UTC()
	mems := make([]*memory.Memory, 0, len(validated.Accepted))
	for _, c := range validated.Accepted {
		captureID := capture.ID
		mems = append(mems, &memory.Memory{
			ID:                uuid.NewString(),
			ProfileID:         capture.ProfileID,
			CaptureID:         &captureID,
			Category:          memory.Category(c.Category),
			Content:           c.Content,
			EmotionalNote:     c.EmotionalNote,
			Importance:        c.Importance,
			Verbatim:          c.Verbatim,
			VerbatimTokens:    p.estimator.Estimate(c.Verbatim),
			SpeakerConfidence: c.SpeakerConfidence,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return mems, nil
}

// fail records the failure on the capture and emits the terminal event.
// The stored reason is short and never contains raw capture text.
func (p *Pipeline) fail(ctx context.Context, capture *memory.Capture, cause error) error {
	reason := utils.Truncate(cause.Error(), failReasonMaxLen)

	if err := p.store.FailCapture(ctx, capture.ID, reason); err != nil {
		p.logger.Error("recording capture failure",
			zap.String("capture_id", capture.ID),
			zap.Error(err),
		)
	}

	p.publish(ctx, capture, memory.StatusFailed, 0, reason)

	return cause
}

// publish emits the terminal lifecycle event. Event delivery is best
// effort; a publish failure never fails the capture.
func (p *Pipeline) publish(ctx context.Context, capture *memory.Capture, status memory.CaptureStatus, memoryCount int, reason string) {
	event := &eventstream.CaptureProcessedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeCaptureProcessed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		ProfileID:     capture.ProfileID,
		CaptureID:     capture.ID,
		Status:        string(status),
		MemoryCount:   memoryCount,
		Error:         reason,
	}

	if err := p.events.PublishCaptureProcessed(ctx, event); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("capture_id", capture.ID),
			zap.Error(err),
		)
	}
}
