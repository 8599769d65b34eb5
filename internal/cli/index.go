package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mvp-joe/codelens/internal/indexer"
	"github.com/mvp-joe/codelens/internal/project"
	"github.com/spf13/cobra"
)

var (
	quietFlag bool
	watchFlag bool
	forceFlag bool
	pruneFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Extract symbols and store snippets for the project",
	Long: `Index parses every Python file matched by paths.code, resolves calls and
return types across the batch, and stores the source snippet of every
import, class and function in the snippet database.

Files whose snippets are newer than the file on disk are skipped unless
--force is given. A file with a syntax error is reported and skipped; the
rest of the batch is still indexed.

Examples:
  # Index the current directory
  codelens index

  # Rewrite every snippet and drop files that no longer exist
  codelens index --force --prune

  # Keep the index current while editing
  codelens index --watch
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
	indexCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Rewrite snippets of unchanged files")
	indexCmd.Flags().BoolVar(&pruneFlag, "prune", false, "Remove stored files that are no longer discovered")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := openProject()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	batch, err := p.Index(ctx, project.IndexOptions{
		Force:    forceFlag,
		Prune:    pruneFlag,
		Progress: NewCLIProgressReporter(out, quietFlag),
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	// OnComplete already printed the summary unless quiet
	if quietFlag {
		for _, f := range batch.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", f)
		}
	}

	if !watchFlag {
		return nil
	}
	if !quietFlag {
		fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
	}
	return watchProject(ctx, p, out)
}

// watchProject reruns the pipeline on file changes until ctx is done.
func watchProject(ctx context.Context, p *project.Project, out io.Writer) error {
	store, err := p.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := p.NewPipeline(indexer.WithStore(store))
	if err != nil {
		return err
	}
	defer pipeline.Loader().Close()

	discovery, err := p.Discovery()
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}

	w, err := indexer.NewWatcher(pipeline, discovery,
		indexer.WithWatcherStore(store),
		indexer.WithWatcherLogger(p.Logger),
		indexer.WithBatchHandler(func(b *indexer.Batch, err error) {
			if err != nil {
				fmt.Fprintf(out, "✗ Reindex failed: %v\n", err)
				return
			}
			if !quietFlag {
				writeBatchSummary(out, b)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	w.Start(ctx)
	defer w.Stop()

	<-ctx.Done()
	if !quietFlag {
		fmt.Fprintln(out, "Watch mode stopped")
	}
	return nil
}
