package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reveriehq/reverie/pkg/memory"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns per-profile record counts for operator visibility.
func (s *Server) handleStats(c *fiber.Ctx) error {
	accountID := c.Query("account_id")
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "account_id query parameter required"})
	}

	profiles, err := s.store.ListProfiles(c.Context(), accountID)
	if err != nil {
		return s.fail(c, err)
	}

	type profileStats struct {
		ProfileID   string `json:"profile_id"`
		Name        string `json:"name"`
		MemoryCount int    `json:"memory_count"`
	}

	stats := make([]profileStats, 0, len(profiles))
	for _, p := range profiles {
		mems, err := s.store.AllMemories(c.Context(), p.ID)
		if err != nil {
			return s.fail(c, err)
		}
		stats = append(stats, profileStats{
			ProfileID:   p.ID,
			Name:        p.Name,
			MemoryCount: len(mems),
		})
	}

	return c.JSON(fiber.Map{
		"profile_count": len(profiles),
		"profiles":      stats,
	})
}

type createProfileRequest struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Default   bool   `json:"default"`
}

func (s *Server) handleCreateProfile(c *fiber.Ctx) error {
	var req createProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	if req.AccountID == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "account_id and name are required"})
	}

	profile := &memory.Profile{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		Name:      req.Name,
		Default:   req.Default,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateProfile(c.Context(), profile); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (s *Server) handleListProfiles(c *fiber.Ctx) error {
	accountID := c.Query("account_id")
	if accountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "account_id query parameter required"})
	}

	profiles, err := s.store.ListProfiles(c.Context(), accountID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"count":    len(profiles),
		"profiles": profiles,
	})
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	profile, err := s.store.GetProfile(c.Context(), c.Params("profileID"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(profile)
}

func (s *Server) handleDeleteProfile(c *fiber.Ctx) error {
	if err := s.store.DeleteProfile(c.Context(), c.Params("profileID")); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
