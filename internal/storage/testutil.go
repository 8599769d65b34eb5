package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestStore opens an in-memory store closed by t.Cleanup.
func NewTestStore(t testing.TB, opts ...Option) *SnippetStore {
	t.Helper()

	s, err := Open(MemoryPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// NewTestStoreFile opens a store backed by a file in t.TempDir().
func NewTestStoreFile(t testing.TB, opts ...Option) *SnippetStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "snippets.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
