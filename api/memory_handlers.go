package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/storage"
)

type createMemoryRequest struct {
	Category       string   `json:"category"`
	Content        string   `json:"content"`
	EmotionalNote  *string  `json:"emotional_note"`
	Importance     int      `json:"importance"`
	Verbatim       string   `json:"verbatim"`
	PreferVerbatim bool     `json:"prefer_verbatim"`
	SpeakerConf    *float64 `json:"speaker_confidence"`
}

// handleCreateMemory is the direct user-edit path: a memory created by
// hand rather than by extraction. It has no source capture.
func (s *Server) handleCreateMemory(c *fiber.Ctx) error {
	var req createMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if !memory.Category(req.Category).Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid category: " + req.Category})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content is required"})
	}
	if !memory.ValidImportance(req.Importance) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "importance must be between 1 and 5"})
	}
	if req.Verbatim == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "verbatim is required"})
	}

	profileID := c.Params("profileID")
	if _, err := s.store.GetProfile(c.Context(), profileID); err != nil {
		return s.fail(c, err)
	}

	now := time.Now().UTC()
	m := &memory.Memory{
		ID:                uuid.NewString(),
		ProfileID:         profileID,
		Category:          memory.Category(req.Category),
		Content:           req.Content,
		EmotionalNote:     req.EmotionalNote,
		Importance:        req.Importance,
		Verbatim:          req.Verbatim,
		PreferVerbatim:    req.PreferVerbatim,
		VerbatimTokens:    s.estimator.Estimate(req.Verbatim),
		SpeakerConfidence: req.SpeakerConf,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateMemory(c.Context(), m); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) handleListMemories(c *fiber.Ctx) error {
	profileID := c.Params("profileID")
	limit := s.pageSize(c.QueryInt("limit"))

	var category *memory.Category
	if q := c.Query("category"); q != "" {
		cat := memory.Category(q)
		if !cat.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid category: " + q})
		}
		category = &cat
	}

	mems, next, err := s.store.ListMemories(c.Context(), profileID, category, c.Query("cursor"), limit)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"items":       mems,
		"next_cursor": next,
	})
}

func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	m, err := s.store.GetMemory(c.Context(), c.Params("profileID"), c.Params("memoryID"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(m)
}

type updateMemoryRequest struct {
	Content        *string `json:"content"`
	EmotionalNote  *string `json:"emotional_note"`
	Category       *string `json:"category"`
	Importance     *int    `json:"importance"`
	PreferVerbatim *bool   `json:"prefer_verbatim"`
	Summary        *string `json:"summary"`
}

func (s *Server) handleUpdateMemory(c *fiber.Ctx) error {
	var req updateMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	patch := storage.MemoryPatch{
		Content:        req.Content,
		EmotionalNote:  req.EmotionalNote,
		Importance:     req.Importance,
		PreferVerbatim: req.PreferVerbatim,
	}

	if req.Category != nil {
		cat := memory.Category(*req.Category)
		if !cat.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid category: " + *req.Category})
		}
		patch.Category = &cat
	}

	if req.Importance != nil && !memory.ValidImportance(*req.Importance) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "importance must be between 1 and 5"})
	}

	if req.Content != nil && *req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content cannot be empty"})
	}

	// A summary edit re-caches its token count in the same write.
	if req.Summary != nil {
		patch.Summary = req.Summary
		summaryTokens := s.estimator.Estimate(*req.Summary)
		patch.SummaryTokens = &summaryTokens
	}

	m, err := s.store.UpdateMemory(c.Context(), c.Params("profileID"), c.Params("memoryID"), patch)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(m)
}

func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	if err := s.store.DeleteMemory(c.Context(), c.Params("profileID"), c.Params("memoryID")); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
