package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/pipeline"
	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/tokens"
	"github.com/reveriehq/reverie/pkg/wake"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`

	// Reason carries the structured validation reason when one exists
	// (e.g., "raw_text_too_short").
	Reason string `json:"reason,omitempty"`
}

// Server is the API server for the reverie system.
type Server struct {
	config    Config
	store     storage.Driver
	pipe      *pipeline.Pipeline
	generator *wake.Generator
	estimator tokens.Estimator
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server.
// The store is injected to allow sharing with the pipeline's workers; the
// estimator caches token counts on direct memory writes the same way the
// pipeline does on extraction.
func NewServer(config Config, store storage.Driver, pipe *pipeline.Pipeline, generator *wake.Generator, estimator tokens.Estimator, logger *zap.Logger) *Server {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 50
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = 200
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		pipe:      pipe,
		generator: generator,
		estimator: estimator,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)

	app.Post("/profiles", s.handleCreateProfile)
	app.Get("/profiles", s.handleListProfiles)
	app.Get("/profiles/:profileID", s.handleGetProfile)
	app.Delete("/profiles/:profileID", s.handleDeleteProfile)

	app.Post("/profiles/:profileID/captures", s.handleSubmitCapture)
	app.Get("/profiles/:profileID/captures", s.handleListCaptures)
	app.Get("/profiles/:profileID/captures/:captureID", s.handleGetCapture)
	app.Post("/profiles/:profileID/captures/:captureID/retry", s.handleRetryCapture)
	app.Delete("/profiles/:profileID/captures/:captureID", s.handleDeleteCapture)

	app.Post("/profiles/:profileID/memories", s.handleCreateMemory)
	app.Get("/profiles/:profileID/memories", s.handleListMemories)
	app.Get("/profiles/:profileID/memories/:memoryID", s.handleGetMemory)
	app.Patch("/profiles/:profileID/memories/:memoryID", s.handleUpdateMemory)
	app.Delete("/profiles/:profileID/memories/:memoryID", s.handleDeleteMemory)

	app.Post("/profiles/:profileID/wake-prompt", s.handleGenerateWakePrompt)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// fail translates a domain error into the matching HTTP response.
// Ownership misses surface as 404, never 403: a forbidden signal would
// confirm that another account's resource exists.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var verr pipeline.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:  verr.Error(),
			Reason: string(verr.Reason),
		})
	}

	var nf storage.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: nf.Error()})
	}

	var conflict storage.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: conflict.Error()})
	}

	s.logger.Error("request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
}

// pageSize clamps the requested limit into the configured bounds.
func (s *Server) pageSize(requested int) int {
	if requested <= 0 {
		return s.config.DefaultPageSize
	}
	if requested > s.config.MaxPageSize {
		return s.config.MaxPageSize
	}
	return requested
}
