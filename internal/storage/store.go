package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SnippetStore persists snippets and per-file parse timestamps in SQLite.
// Writers are serialized; readers may run concurrently with each other.
type SnippetStore struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger

	writeMu sync.Mutex
	closed  bool
}

// Option configures a SnippetStore.
type Option func(*SnippetStore)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SnippetStore) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SnippetStore) { s.logger = logger }
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string, opts ...Option) (*SnippetStore, error) {
	s := &SnippetStore{
		path:   path,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, storageErr("open", path, fmt.Errorf("failed to create directory: %w", err))
		}
		dsn = "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageErr("open", path, err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := createSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, storageErr("open", path, err)
	}

	s.db = db
	s.logger.Debug("opened snippet store", "path", path)
	return s, nil
}

// Path returns the database location.
func (s *SnippetStore) Path() string {
	return s.path
}

// Close releases the database handle. Further calls return ErrClosed.
func (s *SnippetStore) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return storageErr("close", s.path, s.db.Close())
}

// timestampLayout matches SQLite CURRENT_TIMESTAMP text.
const timestampLayout = "2006-01-02 15:04:05"

// epochSeconds stores times the same way as existing databases: float seconds.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
