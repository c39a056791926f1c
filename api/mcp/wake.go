package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/memory"
)

var (
	wakePromptToolName    = "wake_prompt"
	wakePromptDescription = "Generate a token-budgeted wake prompt for a profile: a textual artifact of the profile's most important memories, suitable for injecting persistent context into a new AI session."
)

// WakePromptInput represents the input arguments for the wake_prompt tool.
type WakePromptInput struct {
	ProfileID   string   `json:"profile_id" jsonschema:"the profile to assemble memories for"`
	Categories  []string `json:"categories,omitempty" jsonschema:"memory categories to include (default: all)"`
	TokenBudget int      `json:"token_budget,omitempty" jsonschema:"maximum estimated token cost of the wake prompt (default: 2000)"`
}

// WakePromptOutput represents the structured output of a wake prompt generation.
type WakePromptOutput struct {
	Text        string `json:"text"`
	TokenCount  int    `json:"token_count"`
	MemoryCount int    `json:"memory_count"`
}

// handleWakePrompt processes a wake prompt request via MCP.
func (s *Server) handleWakePrompt(ctx context.Context, _ *mcp.CallToolRequest, input WakePromptInput) (*mcp.CallToolResult, WakePromptOutput, error) {
	logger := s.config.Logger

	if input.ProfileID == "" {
		return toolError("profile_id is required"), WakePromptOutput{}, nil
	}

	categories := make([]memory.Category, 0, len(input.Categories))
	for _, raw := range input.Categories {
		cat := memory.Category(raw)
		if !cat.Valid() {
			return toolError(fmt.Sprintf("invalid category: %s", raw)), WakePromptOutput{}, nil
		}
		categories = append(categories, cat)
	}

	logger.Debug("MCP wake prompt request",
		zap.String("profile_id", input.ProfileID),
		zap.Int("token_budget", input.TokenBudget),
	)

	profile, err := s.config.Store.GetProfile(ctx, input.ProfileID)
	if err != nil {
		return toolError(fmt.Sprintf("profile lookup failed: %v", err)), WakePromptOutput{}, nil
	}

	mems, err := s.config.Store.AllMemories(ctx, input.ProfileID)
	if err != nil {
		return toolError(fmt.Sprintf("memory lookup failed: %v", err)), WakePromptOutput{}, nil
	}

	artifact, err := s.config.Generator.Generate(ctx, profile.Name, mems, categories, input.TokenBudget)
	if err != nil {
		logger.Error("wake prompt generation failed", zap.Error(err))
		return toolError(fmt.Sprintf("wake prompt generation failed: %v", err)), WakePromptOutput{}, nil
	}

	output := WakePromptOutput{
		Text:        artifact.Text,
		TokenCount:  artifact.TokenCount,
		MemoryCount: artifact.MemoryCount,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: artifact.Text},
		},
	}, output, nil
}

// toolError wraps a message into an MCP error result.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
