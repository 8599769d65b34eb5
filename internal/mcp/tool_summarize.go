package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/codelens/internal/indexer"
	"github.com/mvp-joe/codelens/internal/project"
	"github.com/mvp-joe/codelens/internal/summary"
)

// Summarizer produces budgeted summaries of a project.
type Summarizer interface {
	Summarize(ctx context.Context, opts project.SummarizeOptions) (*indexer.Batch, *summary.Summary, error)
}

// AddSummarizeTool registers the codelens_summarize tool with an MCP server.
// This function is composable - it can be combined with other tool registrations.
func AddSummarizeTool(s *server.MCPServer, summarizer Summarizer) {
	tool := mcp.NewTool(
		"codelens_summarize",
		mcp.WithDescription(`Summarize the structure of the Python project within a size budget.

Returns the highest ranked imports, classes, functions and call edges that fit the budget, plus entry points, central components and suggested focus points.
Symbols whose names contain a focus fragment are always included.
Use codelens_lookup afterwards to read the source of a specific symbol.`),
		mcp.WithNumber("budget",
			mcp.Description("Total budget in units, about 4 characters each (default: budget.total from config)")),
		mcp.WithArray("focus",
			mcp.Description("Name fragments to always include (e.g., ['User', 'payment'])")),
		mcp.WithBoolean("full",
			mcp.Description("Return the unbudgeted report of every file (default: false)")),
		mcp.WithString("format",
			mcp.Description("Output format: text (default) or json")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSummarizeHandler(summarizer))
}

// createSummarizeHandler creates the handler function for the codelens_summarize tool.
func createSummarizeHandler(summarizer Summarizer) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		total, err := parseFloatArgPtr(argsMap, "budget")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format, err := parseStringArg(argsMap, "format", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if format == "" {
			format = "text"
		}
		if format != "text" && format != "json" {
			return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (valid: text, json)", format)), nil
		}
		full := parseBoolArg(argsMap, "full", false)

		batch, s, err := summarizer.Summarize(ctx, project.SummarizeOptions{
			Budget: total,
			Focus:  parseArrayArg(argsMap, "focus"),
		})
		if err != nil {
			return nil, fmt.Errorf("summarize failed: %w", err)
		}

		var (
			payload any = s
			report  *summary.Report
		)
		if full {
			report = summary.Full(batch.Result)
			payload = report
		}

		if format == "json" {
			jsonData, err := json.Marshal(&SummarizeResponse{Summary: payload, Skipped: skipped(batch)})
			if err != nil {
				return nil, fmt.Errorf("failed to marshal response: %w", err)
			}
			return mcp.NewToolResultText(string(jsonData)), nil
		}

		var buf bytes.Buffer
		if full {
			err = summary.WriteReport(&buf, report)
		} else {
			err = summary.WriteText(&buf, s)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to render summary: %w", err)
		}
		for _, f := range batch.Failures {
			fmt.Fprintf(&buf, "\n# skipped %v", f)
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func skipped(batch *indexer.Batch) []string {
	out := make([]string, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		out = append(out, f.Error())
	}
	return out
}

// SummarizeResponse represents the JSON response schema for the codelens_summarize MCP tool.
// Summary holds a *summary.Summary, or a *summary.Report when full is set.
type SummarizeResponse struct {
	Summary any      `json:"summary"`
	Skipped []string `json:"skipped"`
}
