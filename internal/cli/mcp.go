package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/codelens/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for snippet lookup and summaries",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
look up symbol source and request budgeted summaries of the project.

The MCP server:
- Provides the codelens_lookup and codelens_summarize tools
- Re-extracts files that changed since they were stored
- Communicates via stdio (standard MCP transport)

Example:
  codelens mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Codelens MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project:  %s\n", p.Root)
	fmt.Fprintf(os.Stderr, "Database: %s\n\n", p.DBPath())

	server, err := mcp.NewServer(p)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
