// Package mcp provides an MCP (Model Context Protocol) server for the reverie system.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/reveriehq/reverie/pkg/storage"
	"github.com/reveriehq/reverie/pkg/utils"
	"github.com/reveriehq/reverie/pkg/wake"
)

type Config struct {
	// Store reads profiles and memories for tool calls.
	Store storage.Driver

	// Generator assembles wake prompts for the wake_prompt tool.
	Generator *wake.Generator

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "reverie",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Store == nil {
		return nil, errors.New("storage driver is required")
	}
	if c.Generator == nil {
		return nil, errors.New("wake prompt generator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	// Add tools
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        wakePromptToolName,
		Description: wakePromptDescription,
	}, s.handleWakePrompt)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        listMemoriesToolName,
		Description: listMemoriesDescription,
	}, s.handleListMemories)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
