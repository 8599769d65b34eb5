package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var cleanQuietFlag bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the snippet database to force a full reindex",
	Long: `Clean removes the snippet database (storage.db_path) together with its
SQLite journal files. The configuration file is preserved.

Examples:
  codelens clean
  codelens clean --quiet
`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	return executeClean(p.DBPath(), cleanQuietFlag, cmd.OutOrStdout())
}

// executeClean deletes the database at dbPath and its -wal and -shm files.
func executeClean(dbPath string, quiet bool, out io.Writer) error {
	info, err := os.Stat(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		if !quiet {
			fmt.Fprintln(out, "No snippet database found")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	if !quiet {
		fmt.Fprintf(out, "✓ Removed %s (~%.1f MB)\n", dbPath, sizeMB)
		fmt.Fprintln(out, "Next 'codelens index' will perform a full reindex")
	}
	return nil
}
