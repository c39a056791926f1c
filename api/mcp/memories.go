package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reveriehq/reverie/pkg/memory"
)

var (
	listMemoriesToolName    = "list_memories"
	listMemoriesDescription = "List a profile's extracted memories, optionally filtered by category. Returns factual content, emotional significance, importance, and the verbatim excerpt each memory was derived from."
)

// ListMemoriesInput represents the input arguments for the list_memories tool.
type ListMemoriesInput struct {
	ProfileID string `json:"profile_id" jsonschema:"the profile whose memories to list"`
	Category  string `json:"category,omitempty" jsonschema:"optional category filter (emotional, work, hobbies, relationships, preferences)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of memories to return (default: 50)"`
}

// ListMemoriesOutput represents the structured output of a memory listing.
type ListMemoriesOutput struct {
	Memories []*memory.Memory `json:"memories"`
	Count    int              `json:"count"`
}

// handleListMemories processes a memory listing request via MCP.
func (s *Server) handleListMemories(ctx context.Context, _ *mcp.CallToolRequest, input ListMemoriesInput) (*mcp.CallToolResult, ListMemoriesOutput, error) {
	if input.ProfileID == "" {
		return toolError("profile_id is required"), ListMemoriesOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	var category *memory.Category
	if input.Category != "" {
		cat := memory.Category(input.Category)
		if !cat.Valid() {
			return toolError(fmt.Sprintf("invalid category: %s", input.Category)), ListMemoriesOutput{}, nil
		}
		category = &cat
	}

	mems, _, err := s.config.Store.ListMemories(ctx, input.ProfileID, category, "", limit)
	if err != nil {
		return toolError(fmt.Sprintf("memory listing failed: %v", err)), ListMemoriesOutput{}, nil
	}

	if mems == nil {
		mems = []*memory.Memory{}
	}

	output := ListMemoriesOutput{Memories: mems, Count: len(mems)}

	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("failed to serialize results: %v", err)), ListMemoriesOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
