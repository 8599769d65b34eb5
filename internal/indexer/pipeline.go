package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/indexer/parsers"
	"github.com/mvp-joe/codelens/internal/source"
	"github.com/mvp-joe/codelens/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Pipeline extracts files in parallel, then enriches the successful tables
// in one single-threaded pass. When a store is attached, each worker writes
// its file's snippets before the barrier.
type Pipeline struct {
	registry *parsers.Registry
	loader   *source.Loader
	store    *storage.SnippetStore
	enricher *graph.Enricher
	progress ProgressReporter
	logger   *slog.Logger

	workers int
	force   bool
	prune   bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists snippets of stale files.
func WithStore(store *storage.SnippetStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithLoader shares a source loader between runs.
func WithLoader(loader *source.Loader) Option {
	return func(p *Pipeline) { p.loader = loader }
}

// WithProgress sets the progress reporter.
func WithProgress(progress ProgressReporter) Option {
	return func(p *Pipeline) { p.progress = progress }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithWorkers bounds the number of concurrent extractions. Values below 1
// use the number of CPUs.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithForce rewrites snippets even for files that are up to date.
func WithForce(force bool) Option {
	return func(p *Pipeline) { p.force = force }
}

// WithPrune removes stored files that are not part of the run.
func WithPrune(prune bool) Option {
	return func(p *Pipeline) { p.prune = prune }
}

// NewPipeline creates a pipeline over the given extractor registry.
func NewPipeline(registry *parsers.Registry, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		registry: registry,
		progress: &NoOpProgressReporter{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	if p.loader == nil {
		loader, err := source.NewLoader(source.DefaultCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("failed to create source loader: %w", err)
		}
		p.loader = loader
	}
	p.enricher = graph.NewEnricher(p.logger)
	return p, nil
}

// Loader returns the source loader used by the pipeline.
func (p *Pipeline) Loader() *source.Loader {
	return p.loader
}

// Run processes files. Syntax errors and unreadable files are recorded in
// Batch.Failures and do not stop the run; storage errors and cancellation
// abort it.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Batch, error) {
	start := time.Now()
	batch := &Batch{RunID: uuid.NewString(), Files: dedupSorted(files)}
	logger := p.logger.With("run", batch.RunID)

	tables := make([]*extraction.SymbolTable, len(batch.Files))
	var (
		mu       sync.Mutex
		failures []FileFailure
		stored   int
	)

	p.progress.OnFileProcessingStart(len(batch.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range batch.Files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			table, wrote, err := p.processFile(gctx, path)
			if err != nil {
				var failure *FileFailure
				if errors.As(err, &failure) {
					logger.Warn("file skipped", "path", path, "error", failure.Err)
					mu.Lock()
					failures = append(failures, *failure)
					mu.Unlock()
					p.progress.OnFileProcessed(path)
					return nil
				}
				return err
			}
			tables[i] = table
			if wrote {
				mu.Lock()
				stored++
				mu.Unlock()
			}
			p.progress.OnFileProcessed(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	batch.Failures = failures
	batch.Stored = stored

	var ok []*extraction.SymbolTable
	for _, t := range tables {
		if t != nil {
			ok = append(ok, t)
		}
	}
	if p.store != nil {
		batch.Skipped = len(ok) - stored
	}

	p.progress.OnEnrichmentStart(len(ok))
	enrichStart := time.Now()
	res, err := p.enricher.Enrich(ctx, ok)
	if err != nil {
		return nil, err
	}
	p.progress.OnEnrichmentComplete(len(res.Edges), time.Since(enrichStart))
	batch.Result = res
	batch.Tables = res.Tables

	if p.prune && p.store != nil {
		pruned, err := p.store.Prune(ctx, batch.Files)
		if err != nil {
			return nil, fmt.Errorf("failed to prune snippet store: %w", err)
		}
		batch.Pruned = pruned
	}

	batch.Duration = time.Since(start)
	logger.Info("pipeline complete",
		"files", len(batch.Files),
		"tables", len(batch.Tables),
		"failures", len(batch.Failures),
		"stored", batch.Stored,
		"edges", len(res.Edges),
		"duration", batch.Duration)
	p.progress.OnComplete(batch)
	return batch, nil
}

// processFile loads and extracts one file and stores its snippets when
// needed. Per-file problems come back as *FileFailure.
func (p *Pipeline) processFile(ctx context.Context, path string) (*extraction.SymbolTable, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	unit, err := p.loader.Load(path)
	if err != nil {
		return nil, false, &FileFailure{Path: path, Err: err}
	}

	table, err := p.registry.Extract(ctx, unit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, &FileFailure{Path: path, Err: err}
	}

	if p.store == nil {
		return table, false, nil
	}

	stale := p.force
	if !stale {
		stale, err = p.store.NeedsUpdate(ctx, path)
		if err != nil {
			return nil, false, err
		}
	}
	if !stale {
		return table, false, nil
	}
	if err := p.store.UpsertFile(ctx, path, storage.SnippetsFromTable(unit, table)); err != nil {
		return nil, false, fmt.Errorf("failed to store snippets: %w", err)
	}
	return table, true, nil
}

func dedupSorted(files []string) []string {
	out := append([]string(nil), files...)
	sort.Strings(out)
	n := 0
	for i, f := range out {
		if i > 0 && f == out[n-1] {
			continue
		}
		out[n] = f
		n++
	}
	return out[:n]
}
