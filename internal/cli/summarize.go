package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/codelens/internal/project"
	"github.com/mvp-joe/codelens/internal/summary"
	"github.com/spf13/cobra"
)

var (
	summarizeBudget float64
	summarizeFocus  []string
	summarizeFull   bool
	summarizeFormat string
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print a budgeted summary of the project",
	Long: `Summarize extracts and enriches the project and prints the most important
imports, classes, functions and call edges that fit the budget.

The budget is split across sections by their size with a 5% floor per
section. Symbols matching a --focus fragment are always included.

Examples:
  # Summary within the configured budget
  codelens summarize

  # Small summary centered on the user model
  codelens summarize --budget 500 --focus User

  # Everything, as JSON
  codelens summarize --full --format json
`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().Float64VarP(&summarizeBudget, "budget", "b", 0, "Total budget in units (default from budget.total)")
	summarizeCmd.Flags().StringSliceVar(&summarizeFocus, "focus", nil, "Name fragments to always include (default from ranking.focus)")
	summarizeCmd.Flags().BoolVar(&summarizeFull, "full", false, "Print the unbudgeted report")
	summarizeCmd.Flags().StringVar(&summarizeFormat, "format", "text", "Output format: text or json")
}

type summarizeOptions struct {
	Budget *float64
	Focus  []string
	Full   bool
	Format string
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject()
	if err != nil {
		return err
	}

	opts := summarizeOptions{Focus: summarizeFocus, Full: summarizeFull, Format: summarizeFormat}
	if cmd.Flags().Changed("budget") {
		opts.Budget = &summarizeBudget
	}
	return executeSummarize(ctx, p, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func executeSummarize(ctx context.Context, p *project.Project, opts summarizeOptions, out, errOut io.Writer) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}

	batch, s, err := p.Summarize(ctx, project.SummarizeOptions{Budget: opts.Budget, Focus: opts.Focus})
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(errOut, "✗ skipped %v\n", f)
	}

	if opts.Full {
		report := summary.Full(batch.Result)
		if opts.Format == "json" {
			return writeJSON(out, report)
		}
		return summary.WriteReport(out, report)
	}
	if opts.Format == "json" {
		return writeJSON(out, s)
	}
	return summary.WriteText(out, s)
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (valid: text, json)", format)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
