package indexer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mvp-joe/codelens/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before a rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reruns the pipeline when source files under the discovery root
// change. Removed files are deleted from the store.
type Watcher struct {
	pipeline  *Pipeline
	discovery *FileDiscovery
	store     *storage.SnippetStore
	logger    *slog.Logger
	onBatch   func(*Batch, error)

	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
	started      atomic.Bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceTime = d }
}

// WithBatchHandler receives the outcome of every rerun.
func WithBatchHandler(fn func(*Batch, error)) WatcherOption {
	return func(w *Watcher) { w.onBatch = fn }
}

// WithWatcherStore deletes removed files from store.
func WithWatcherStore(store *storage.SnippetStore) WatcherOption {
	return func(w *Watcher) { w.store = store }
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a watcher over every non-ignored directory of the
// discovery root.
func NewWatcher(p *Pipeline, discovery *FileDiscovery, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		pipeline:     p,
		discovery:    discovery,
		logger:       slog.New(slog.DiscardHandler),
		onBatch:      func(*Batch, error) {},
		watcher:      fsw,
		debounceTime: DefaultDebounce,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirectoriesRecursively(discovery.RootDir()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching for file changes. Only the first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	if w.started.CompareAndSwap(false, true) {
		go w.watch(ctx)
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		w.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	rerunCh := make(chan struct{}, 1)
	changed := make(map[string]bool)
	stopTimer := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.shouldWatchDirectory(event.Name) {
						if err := w.addDirectoriesRecursively(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}
			changed[event.Name] = true

			stopTimer()
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case rerunCh <- struct{}{}:
				default:
				}
			})

		case <-rerunCh:
			w.rerun(ctx, changed)
			changed = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// rerun drops removed files from the store and runs the pipeline over the
// current file set. Unchanged files are skipped by the store's staleness check.
func (w *Watcher) rerun(ctx context.Context, changed map[string]bool) {
	if len(changed) == 0 {
		return
	}

	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		w.pipeline.Loader().Forget(path)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if w.store != nil {
			if err := w.store.DeleteFile(ctx, path); err != nil {
				w.logger.Warn("failed to delete removed file", "path", path, "error", err)
			}
		}
	}

	w.logger.Info("rerunning after changes", "files", len(paths))
	files, err := w.discovery.DiscoverFiles()
	if err != nil {
		w.onBatch(nil, err)
		return
	}
	batch, err := w.pipeline.Run(ctx, files)
	if err != nil {
		w.logger.Error("rerun failed", "error", err)
	}
	w.onBatch(batch, err)
}

// shouldProcessEvent checks if an event concerns an indexable file.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := w.discovery.Rel(event.Name)
	if err != nil {
		return false
	}
	return w.discovery.Matches(rel)
}

// shouldWatchDirectory checks if a directory should be watched.
func (w *Watcher) shouldWatchDirectory(path string) bool {
	rel, err := w.discovery.Rel(path)
	if err != nil {
		return false
	}
	return rel == "." || !w.discovery.shouldIgnore(rel)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *Watcher) addDirectoriesRecursively(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error accessing path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if !w.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
