package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvp-joe/codelens/internal/config"
	"github.com/mvp-joe/codelens/internal/logging"
	"github.com/mvp-joe/codelens/internal/project"
	"github.com/spf13/cobra"
)

var (
	rootDirFlag  string
	logLevelFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codelens",
	Short: "Codelens - structural summaries of Python code bases",
	Long: `Codelens extracts the symbols of a Python code base, enriches them with
call edges and inferred return types, and produces summaries that fit a
fixed size budget.

Configuration is read from .codelens/config.yml under the project root and
can be overridden with CODELENS_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error (overrides logging.level)")
}

// openProject loads the configuration of the --root directory and builds
// the project logger. The --log-level flag wins over the config file.
func openProject() (*project.Project, error) {
	root, err := filepath.Abs(rootDirFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level)
	return project.New(root, cfg, logger)
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
