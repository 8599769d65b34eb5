package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mvp-joe/codelens/internal/project"
	"github.com/spf13/cobra"
)

var (
	lookupFuzzy  bool
	lookupBudget float64
	lookupFormat string
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup FILE NAME",
	Short: "Print the source of a symbol from the snippet store",
	Long: `Lookup prints the exact source of the imports, classes and functions of
FILE named NAME. The file is re-extracted first when it changed since it
was last stored.

NAME matches "Class.method" snippets by their last component, so
"save" finds "Repository.save". With --fuzzy any name containing NAME
matches; exact, prefix and suffix matches come first.

Examples:
  codelens lookup app/models.py User
  codelens lookup app/models.py save --fuzzy --budget 200
`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().BoolVar(&lookupFuzzy, "fuzzy", false, "Match names containing NAME")
	lookupCmd.Flags().Float64VarP(&lookupBudget, "budget", "b", 0, "Cap the printed code at this many units (0 = no cap)")
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "text", "Output format: text or json")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject()
	if err != nil {
		return err
	}
	opts := project.LookupOptions{File: args[0], Name: args[1], Fuzzy: lookupFuzzy, Budget: lookupBudget}
	return executeLookup(ctx, p, opts, lookupFormat, cmd.OutOrStdout())
}

func executeLookup(ctx context.Context, p *project.Project, opts project.LookupOptions, format string, out io.Writer) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	snippets, err := p.Lookup(ctx, opts)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if format == "json" {
		return writeJSON(out, snippets)
	}
	if len(snippets) == 0 {
		fmt.Fprintf(out, "No snippets matching %q in %s\n", opts.Name, opts.File)
		return nil
	}
	for i, s := range snippets {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "# %s:%d-%d %s (%s)\n", opts.File, s.LineStart, s.LineEnd, s.Name, s.Type)
		fmt.Fprintln(out, s.Code)
	}
	return nil
}
