package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/codelens/internal/indexer/parsers"
	"github.com/mvp-joe/codelens/internal/project"
	"github.com/mvp-joe/codelens/internal/storage"
)

// SnippetLookup finds stored snippets by file and name.
type SnippetLookup interface {
	Lookup(ctx context.Context, opts project.LookupOptions) ([]storage.Snippet, error)
}

// AddLookupTool registers the codelens_lookup tool with an MCP server.
// This function is composable - it can be combined with other tool registrations.
func AddLookupTool(s *server.MCPServer, lookup SnippetLookup) {
	tool := mcp.NewTool(
		"codelens_lookup",
		mcp.WithDescription(`Return the exact source of imports, classes and functions of one Python file by name.

Methods are stored as "Class.method" and match by their last component, so "save" finds "Repository.save".
With fuzzy=true any name containing the query matches; exact, prefix and suffix matches come first.
The file is re-extracted first when it changed on disk.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("File path, absolute or relative to the project root (e.g., 'app/models.py')")),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Symbol name (e.g., 'User', 'save', 'User.save')")),
		mcp.WithBoolean("fuzzy",
			mcp.Description("Match names containing the query (default: false)")),
		mcp.WithNumber("budget",
			mcp.Description("Cap the returned code at this many units, about 4 characters each (default: no cap)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createLookupHandler(lookup))
}

// createLookupHandler creates the handler function for the codelens_lookup tool.
func createLookupHandler(lookup SnippetLookup) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()

		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		file, err := parseStringArg(argsMap, "file", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name, err := parseStringArg(argsMap, "name", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit, err := parseFloatArgPtr(argsMap, "budget")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		opts := project.LookupOptions{
			File:  file,
			Name:  name,
			Fuzzy: parseBoolArg(argsMap, "fuzzy", false),
		}
		if limit != nil {
			opts.Budget = *limit
		}

		snippets, err := lookup.Lookup(ctx, opts)
		if err != nil {
			if isRequestError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("lookup failed: %w", err)
		}
		if snippets == nil {
			snippets = []storage.Snippet{}
		}

		response := &LookupResponse{
			File:    file,
			Name:    name,
			Fuzzy:   opts.Fuzzy,
			Results: snippets,
			Total:   len(snippets),
			Metadata: ResponseMetadata{
				TookMs: int(time.Since(startTime).Milliseconds()),
				Source: "snippets",
			},
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		// Return as text result (mcp-go convention)
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// isRequestError reports errors caused by the request rather than the
// server, such as excluded or unparsable files.
func isRequestError(err error) bool {
	return errors.Is(err, project.ErrNotIndexable) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, parsers.ErrUnsupportedFile) ||
		parsers.IsParseError(err)
}

// LookupResponse represents the JSON response schema for the codelens_lookup MCP tool.
type LookupResponse struct {
	File     string            `json:"file"`
	Name     string            `json:"name"`
	Fuzzy    bool              `json:"fuzzy"`
	Results  []storage.Snippet `json:"results"`
	Total    int               `json:"total"`
	Metadata ResponseMetadata  `json:"metadata"`
}

// ResponseMetadata contains timing and source information.
type ResponseMetadata struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"`
}
