package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reveriehq/reverie/pkg/memory"
)

type wakePromptRequest struct {
	Categories  []string `json:"categories"`
	TokenBudget int      `json:"token_budget"`
}

type wakePromptResponse struct {
	Text              string         `json:"text"`
	TokenCount        int            `json:"token_count"`
	MemoryCount       int            `json:"memory_count"`
	PerCategoryTokens map[string]int `json:"per_category_tokens"`
}

// handleGenerateWakePrompt assembles a wake prompt on demand. Read-only:
// nothing about the generation is persisted.
func (s *Server) handleGenerateWakePrompt(c *fiber.Ctx) error {
	var req wakePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	categories := make([]memory.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		cat := memory.Category(raw)
		if !cat.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid category: " + raw})
		}
		categories = append(categories, cat)
	}

	profileID := c.Params("profileID")
	profile, err := s.store.GetProfile(c.Context(), profileID)
	if err != nil {
		return s.fail(c, err)
	}

	mems, err := s.store.AllMemories(c.Context(), profileID)
	if err != nil {
		return s.fail(c, err)
	}

	artifact, err := s.generator.Generate(c.Context(), profile.Name, mems, categories, req.TokenBudget)
	if err != nil {
		return s.fail(c, err)
	}

	perCategory := make(map[string]int, len(artifact.PerCategoryTokens))
	for cat, count := range artifact.PerCategoryTokens {
		perCategory[string(cat)] = count
	}

	return c.JSON(wakePromptResponse{
		Text:              artifact.Text,
		TokenCount:        artifact.TokenCount,
		MemoryCount:       artifact.MemoryCount,
		PerCategoryTokens: perCategory,
	})
}
