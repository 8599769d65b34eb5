package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/codelens/internal/project"
)

// Server exposes a project over MCP on stdio.
type Server struct {
	project *project.Project
	mcp     *server.MCPServer
}

// NewServer creates an MCP server with the lookup and summarize tools
// registered for p.
func NewServer(p *project.Project) (*Server, error) {
	if p == nil {
		return nil, errors.New("project is required")
	}

	mcpServer := server.NewMCPServer(
		"codelens-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	AddLookupTool(mcpServer, p)
	AddSummarizeTool(mcpServer, p)

	return &Server{project: p, mcp: mcpServer}, nil
}

// Serve serves MCP on stdio and blocks until ctx is done or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.project.Logger.Info("starting MCP server on stdio", "root", s.project.Root)
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case <-ctx.Done():
		s.project.Logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil
	}
}

// Close releases server resources. Stores are opened per request, so
// there is nothing to release yet.
func (s *Server) Close() error {
	return nil
}
