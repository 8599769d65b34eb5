// Package project binds configuration, discovery, extraction, storage and
// summarization for one source tree. The CLI and the MCP server both work
// through a Project.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mvp-joe/codelens/internal/budget"
	"github.com/mvp-joe/codelens/internal/config"
	"github.com/mvp-joe/codelens/internal/indexer"
	"github.com/mvp-joe/codelens/internal/indexer/parsers"
	"github.com/mvp-joe/codelens/internal/storage"
	"github.com/mvp-joe/codelens/internal/summary"
)

// ErrNotIndexable indicates a lookup target that the configured code
// patterns exclude.
var ErrNotIndexable = errors.New("file is not indexable")

// Project is a source tree with its loaded configuration.
type Project struct {
	Root   string
	Config *config.Config
	Logger *slog.Logger

	registry *parsers.Registry
}

// Open loads the configuration of root and returns the project.
func Open(root string, logger *slog.Logger) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg, err := config.LoadConfigFromDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(abs, cfg, logger)
}

// New returns a project over an already loaded configuration.
func New(root string, cfg *config.Config, logger *slog.Logger) (*Project, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	return &Project{
		Root:     abs,
		Config:   cfg,
		Logger:   logger,
		registry: parsers.NewDefaultRegistry(),
	}, nil
}

// DBPath returns the absolute path of the snippet database.
func (p *Project) DBPath() string {
	return p.Config.ResolveDBPath(p.Root)
}

// Discovery returns a file discovery over the configured patterns.
func (p *Project) Discovery() (*indexer.FileDiscovery, error) {
	return indexer.NewFileDiscovery(p.Root, p.Config.Paths.Code, p.Config.Paths.Ignore)
}

// OpenStore opens the snippet database, creating it when missing.
func (p *Project) OpenStore() (*storage.SnippetStore, error) {
	return storage.Open(p.DBPath(), storage.WithLogger(p.Logger))
}

// NewPipeline returns a pipeline configured with the project's worker count
// and logger. opts are applied after the defaults.
func (p *Project) NewPipeline(opts ...indexer.Option) (*indexer.Pipeline, error) {
	base := []indexer.Option{
		indexer.WithWorkers(p.Config.Extraction.Workers),
		indexer.WithLogger(p.Logger),
	}
	return indexer.NewPipeline(p.registry, append(base, opts...)...)
}

// Files discovers the current source files of the project.
func (p *Project) Files(progress indexer.ProgressReporter) ([]string, error) {
	if progress == nil {
		progress = &indexer.NoOpProgressReporter{}
	}
	discovery, err := p.Discovery()
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}
	progress.OnDiscoveryStart()
	files, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	progress.OnDiscoveryComplete(len(files))
	return files, nil
}

// IndexOptions control Index.
type IndexOptions struct {
	Force    bool
	Prune    bool
	Progress indexer.ProgressReporter
}

// Index extracts every discovered file and stores the snippets of stale
// ones.
func (p *Project) Index(ctx context.Context, opts IndexOptions) (*indexer.Batch, error) {
	files, err := p.Files(opts.Progress)
	if err != nil {
		return nil, err
	}

	store, err := p.OpenStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	pipelineOpts := []indexer.Option{
		indexer.WithStore(store),
		indexer.WithForce(opts.Force),
		indexer.WithPrune(opts.Prune),
	}
	if opts.Progress != nil {
		pipelineOpts = append(pipelineOpts, indexer.WithProgress(opts.Progress))
	}
	pipeline, err := p.NewPipeline(pipelineOpts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Loader().Close()

	return pipeline.Run(ctx, files)
}

// SummarizeOptions control Summarize. Zero values fall back to the
// configuration.
type SummarizeOptions struct {
	Budget   *float64
	Focus    []string
	Progress indexer.ProgressReporter
}

// Summarize extracts and enriches every discovered file and assembles a
// budgeted summary.
func (p *Project) Summarize(ctx context.Context, opts SummarizeOptions) (*indexer.Batch, *summary.Summary, error) {
	files, err := p.Files(opts.Progress)
	if err != nil {
		return nil, nil, err
	}

	var pipelineOpts []indexer.Option
	if opts.Progress != nil {
		pipelineOpts = append(pipelineOpts, indexer.WithProgress(opts.Progress))
	}
	pipeline, err := p.NewPipeline(pipelineOpts...)
	if err != nil {
		return nil, nil, err
	}
	defer pipeline.Loader().Close()

	batch, err := pipeline.Run(ctx, files)
	if err != nil {
		return nil, nil, err
	}

	s, err := summary.Assemble(batch.Result, p.summaryOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	return batch, s, nil
}

func (p *Project) summaryOptions(opts SummarizeOptions) summary.Options {
	total := p.Config.Budget.Total
	if opts.Budget != nil {
		total = *opts.Budget
	}
	focus := p.Config.Ranking.Focus
	if len(opts.Focus) > 0 {
		focus = opts.Focus
	}
	return summary.Options{
		Budget:    total,
		Focus:     focus,
		Weights:   p.Config.Ranking.Weights,
		Estimator: p.Config.Estimator(),
	}
}

// LookupOptions control Lookup.
type LookupOptions struct {
	File  string
	Name  string
	Fuzzy bool
	// Budget caps the total code size in estimator units. Zero means no cap.
	Budget float64
}

// Lookup refreshes File in the store when it is stale and returns the
// snippets matching Name.
func (p *Project) Lookup(ctx context.Context, opts LookupOptions) ([]storage.Snippet, error) {
	path := opts.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	path = filepath.Clean(path)

	discovery, err := p.Discovery()
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}
	rel, err := discovery.Rel(path)
	if err != nil || !discovery.Matches(rel) {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexable, opts.File)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.File, err)
	}

	store, err := p.OpenStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	pipeline, err := p.NewPipeline(indexer.WithStore(store), indexer.WithWorkers(1))
	if err != nil {
		return nil, err
	}
	defer pipeline.Loader().Close()

	batch, err := pipeline.Run(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	if len(batch.Failures) > 0 {
		return nil, batch.Failures[0]
	}

	snippets, err := store.Lookup(ctx, path, opts.Name, !opts.Fuzzy)
	if err != nil {
		return nil, err
	}
	if opts.Budget > 0 {
		snippets = fitSnippets(snippets, opts.Budget, p.Config.Estimator())
	}
	return snippets, nil
}

// fitSnippets keeps snippets in order while their code fits the budget. The
// first snippet that does not fit is truncated and the rest are dropped.
func fitSnippets(snippets []storage.Snippet, total float64, e budget.Estimator) []storage.Snippet {
	remaining := total
	out := make([]storage.Snippet, 0, len(snippets))
	for _, s := range snippets {
		size := e.Units(s.Code)
		if size <= remaining {
			out = append(out, s)
			remaining -= size
			continue
		}
		s.Code = budget.Truncate(s.Code, remaining, e)
		out = append(out, s)
		break
	}
	return out
}
