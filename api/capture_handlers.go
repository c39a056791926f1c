package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/pipeline"
)

type submitCaptureRequest struct {
	RawText      string `json:"raw_text"`
	Method       string `json:"method"`
	PlatformHint string `json:"platform_hint"`
}

// captureStatusResponse is the polling shape for capture state. Raw text is
// deliberately absent.
type captureStatusResponse struct {
	CaptureID    string `json:"capture_id"`
	Status       string `json:"status"`
	MemoryCount  int    `json:"memory_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func captureStatus(c *memory.Capture) captureStatusResponse {
	return captureStatusResponse{
		CaptureID:    c.ID,
		Status:       string(c.Status),
		MemoryCount:  c.MemoryCount,
		ErrorMessage: c.ErrorDetail,
	}
}

// handleSubmitCapture accepts a transcript for asynchronous extraction.
// Duplicates are not an error: resubmitting the same text returns the
// existing capture with 200 instead of 202.
func (s *Server) handleSubmitCapture(c *fiber.Ctx) error {
	var req submitCaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	profileID := c.Params("profileID")

	capture, err := s.pipe.Submit(c.Context(), pipeline.IntakeRequest{
		ProfileID:    profileID,
		Method:       memory.Method(req.Method),
		RawText:      req.RawText,
		PlatformHint: req.PlatformHint,
	})
	if err != nil {
		return s.fail(c, err)
	}

	status := fiber.StatusAccepted
	if capture.Status != memory.StatusQueued {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(captureStatus(capture))
}

func (s *Server) handleListCaptures(c *fiber.Ctx) error {
	profileID := c.Params("profileID")
	status := memory.CaptureStatus(c.Query("status"))
	limit := s.pageSize(c.QueryInt("limit"))

	captures, next, err := s.store.ListCaptures(c.Context(), profileID, status, c.Query("cursor"), limit)
	if err != nil {
		return s.fail(c, err)
	}

	items := make([]captureStatusResponse, 0, len(captures))
	for _, capture := range captures {
		items = append(items, captureStatus(capture))
	}

	return c.JSON(fiber.Map{
		"items":       items,
		"next_cursor": next,
	})
}

func (s *Server) handleGetCapture(c *fiber.Ctx) error {
	capture, err := s.store.GetOwnedCapture(c.Context(), c.Params("profileID"), c.Params("captureID"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(captureStatus(capture))
}

// handleRetryCapture requeues a terminal capture. A capture that is
// queued or processing yields 409.
func (s *Server) handleRetryCapture(c *fiber.Ctx) error {
	capture, err := s.pipe.Retry(c.Context(), c.Params("profileID"), c.Params("captureID"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(captureStatus(capture))
}

func (s *Server) handleDeleteCapture(c *fiber.Ctx) error {
	if err := s.store.DeleteCapture(c.Context(), c.Params("profileID"), c.Params("captureID")); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
