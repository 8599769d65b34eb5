package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mvp-joe/codelens/internal/storage"
	"github.com/spf13/cobra"
)

var statsJSON bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snippet store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	store, err := p.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return executeStats(cmd.Context(), store, statsJSON, cmd.OutOrStdout())
}

func executeStats(ctx context.Context, store *storage.SnippetStore, asJSON bool, out io.Writer) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	if asJSON {
		return writeJSON(out, stats)
	}

	fmt.Fprintf(out, "Database: %s\n", store.Path())
	fmt.Fprintf(out, "Files:    %s\n", formatNumber(stats.FileCount))
	fmt.Fprintf(out, "Snippets: %s\n", formatNumber(stats.SnippetCount))

	types := make([]string, 0, len(stats.TypeDistribution))
	for t := range stats.TypeDistribution {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %-9s %s\n", t+":", formatNumber(stats.TypeDistribution[t]))
	}
	return nil
}
