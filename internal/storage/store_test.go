package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/codelens/internal/indexer/parsers"
	"github.com/mvp-joe/codelens/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for SnippetStore:
// - Extract, persist, and look up a symbol whose code matches its source span
// - Re-running UpsertFile on the same input yields the same rows
// - A failing insert leaves the previous snippet set untouched
// - NeedsUpdate follows missing-file, missing-record and mtime rules
// - Exact lookup matches full names and dotted suffixes only
// - Fuzzy lookup ranks exact, prefix, suffix, substring, then shorter names
// - DeleteFile, Prune, TrackedFiles and Stats
// - Concurrent upserts of different files do not interfere

const fixtureDir = "../../testdata/code/python/"

func fixtureSnippets(t *testing.T, name string) (*source.Unit, []Snippet) {
	t.Helper()
	content, err := os.ReadFile(fixtureDir + name)
	require.NoError(t, err)
	unit := source.NewUnit(fixtureDir+name, time.Time{}, content)
	table, err := parsers.NewPythonExtractor().Extract(context.Background(), unit)
	require.NoError(t, err)
	return unit, SnippetsFromTable(unit, table)
}

type rowKey struct {
	FilePath, Name     string
	Type               SnippetType
	Code               string
	LineStart, LineEnd int
	CharCount          int
}

func keys(snippets []Snippet) []rowKey {
	out := make([]rowKey, len(snippets))
	for i, s := range snippets {
		out[i] = rowKey{s.FilePath, s.Name, s.Type, s.Code, s.LineStart, s.LineEnd, s.CharCount}
	}
	return out
}

func TestSnippetsFromTable(t *testing.T) {
	t.Parallel()

	_, snippets := fixtureSnippets(t, "simple.py")

	byName := make(map[string]Snippet)
	for _, s := range snippets {
		byName[s.Name] = s
	}
	assert.Len(t, snippets, 5+2+7+4)

	imp := byName["from typing import List, Optional"]
	assert.Equal(t, TypeImport, imp.Type)
	assert.Equal(t, "from typing import List, Optional", imp.Code)

	user := byName["User"]
	assert.Equal(t, TypeClass, user.Type)
	assert.Equal(t, "A registered user.", user.Description)
	assert.Equal(t, 12, user.LineStart)
	assert.Equal(t, 27, user.LineEnd)

	repo := byName["UserRepository"]
	assert.Equal(t, []string{"base:Base", "base:models.Model"}, repo.Tags)

	find := byName["UserRepository.find_by_email"]
	assert.Equal(t, TypeFunction, find.Type)
	assert.Equal(t, []string{"decorator:staticmethod", "method"}, find.Tags)

	fetch := byName["fetch"]
	assert.Equal(t, []string{"async"}, fetch.Tags)
	assert.Equal(t, len([]rune(fetch.Code)), fetch.CharCount)
	assert.Equal(t, fixtureDir[:len(fixtureDir)-1], fetch.DirPath)
}

func TestSnippetsFromTable_LaterDefinitionWins(t *testing.T) {
	t.Parallel()

	unit := source.NewUnit("dup.py", time.Time{}, []byte("def f():\n    return 1\n\ndef f():\n    return 2\n"))
	table, err := parsers.NewPythonExtractor().Extract(context.Background(), unit)
	require.NoError(t, err)

	snippets := SnippetsFromTable(unit, table)
	require.Len(t, snippets, 1)
	assert.Equal(t, "def f():\n    return 2", snippets[0].Code)
}

func TestSnippetStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	unit, snippets := fixtureSnippets(t, "simple.py")
	require.NoError(t, store.UpsertFile(ctx, unit.Path, snippets))

	got, err := store.Lookup(ctx, unit.Path, "create_user", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unit.Span(50, 52), got[0].Code)
	assert.Equal(t, 50, got[0].LineStart)
	assert.Equal(t, 52, got[0].LineEnd)
	assert.Equal(t, TypeFunction, got[0].Type)
	assert.False(t, got[0].UpdatedAt.IsZero())

	// Bare method names match their dotted suffix.
	got, err = store.Lookup(ctx, unit.Path, "def validate(self)", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "User.validate", got[0].Name)
}

func TestSnippetStore_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	unit, snippets := fixtureSnippets(t, "simple.py")

	require.NoError(t, store.UpsertFile(ctx, unit.Path, snippets))
	first, err := store.SnippetsByFile(ctx, unit.Path)
	require.NoError(t, err)

	require.NoError(t, store.UpsertFile(ctx, unit.Path, snippets))
	second, err := store.SnippetsByFile(ctx, unit.Path)
	require.NoError(t, err)

	assert.Equal(t, keys(first), keys(second))
	assert.Len(t, second, len(snippets))
}

func TestSnippetStore_UpsertIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	unit, snippets := fixtureSnippets(t, "simple.py")
	require.NoError(t, store.UpsertFile(ctx, unit.Path, snippets))
	before, err := store.SnippetsByFile(ctx, unit.Path)
	require.NoError(t, err)

	// The type CHECK constraint rejects the third row mid-transaction.
	replacement := []Snippet{
		{Name: "a", Type: TypeFunction, Code: "def a(): pass", LineStart: 1, LineEnd: 1},
		{Name: "b", Type: TypeFunction, Code: "def b(): pass", LineStart: 2, LineEnd: 2},
		{Name: "c", Type: SnippetType("variable"), Code: "c = 1", LineStart: 3, LineEnd: 3},
	}
	err = store.UpsertFile(ctx, unit.Path, replacement)
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upsert", se.Op)
	assert.Equal(t, unit.Path, se.Path)

	after, err := store.SnippetsByFile(ctx, unit.Path)
	require.NoError(t, err)
	assert.Equal(t, keys(before), keys(after))
}

func TestSnippetStore_NeedsUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	mtime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	store := NewTestStore(t, WithClock(FixedClock(mtime.Add(time.Minute))))

	missing, err := store.NeedsUpdate(ctx, filepath.Join(dir, "gone.py"))
	require.NoError(t, err)
	assert.False(t, missing, "missing files have nothing to extract")

	stale, err := store.NeedsUpdate(ctx, path)
	require.NoError(t, err)
	assert.True(t, stale, "no record")

	require.NoError(t, store.UpsertFile(ctx, path, nil))
	stale, err = store.NeedsUpdate(ctx, path)
	require.NoError(t, err)
	assert.False(t, stale)

	parsed, ok, err := store.LastParsed(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, mtime.Add(time.Minute), parsed, time.Millisecond)

	later := mtime.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	stale, err = store.NeedsUpdate(ctx, path)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestSnippetStore_LookupExact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	require.NoError(t, store.UpsertFile(ctx, "r.py", []Snippet{
		{Name: "Repo.saved", Type: TypeFunction, Code: "x", LineStart: 1, LineEnd: 1},
		{Name: "Repo.save", Type: TypeFunction, Code: "y", LineStart: 2, LineEnd: 2},
		{Name: "save", Type: TypeFunction, Code: "z", LineStart: 3, LineEnd: 3},
		{Name: "Repo.SAVE", Type: TypeFunction, Code: "w", LineStart: 4, LineEnd: 4},
	}))

	got, err := store.Lookup(ctx, "r.py", "save", true)
	require.NoError(t, err)
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"save", "Repo.save"}, names)

	got, err = store.Lookup(ctx, "other.py", "save", true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnippetStore_LookupExactNonASCII(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	require.NoError(t, store.UpsertFile(ctx, "r.py", []Snippet{
		{Name: "Repo.保存", Type: TypeFunction, Code: "x", LineStart: 1, LineEnd: 1},
		{Name: "Repo.保存する", Type: TypeFunction, Code: "y", LineStart: 2, LineEnd: 2},
		{Name: "données.café", Type: TypeFunction, Code: "z", LineStart: 3, LineEnd: 3},
	}))

	got, err := store.Lookup(ctx, "r.py", "保存", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Repo.保存", got[0].Name)

	got, err = store.Lookup(ctx, "r.py", "café", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "données.café", got[0].Name)
}

func TestSnippetStore_UpdatedAtFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	when := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("JST", 9*60*60))
	store := NewTestStore(t, WithClock(FixedClock(when)))
	require.NoError(t, store.UpsertFile(ctx, "a.py", []Snippet{
		{Name: "f", Type: TypeFunction, Code: "def f(): pass", LineStart: 1, LineEnd: 1},
	}))

	var raw string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT CAST(updated_at AS TEXT) FROM code_snippets WHERE name = 'f'`).Scan(&raw))
	assert.Equal(t, "2024-03-09 05:05:07", raw)

	got, err := store.Lookup(ctx, "a.py", "f", true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].UpdatedAt.Equal(time.Date(2024, 3, 9, 5, 5, 7, 0, time.UTC)))
}

func TestSnippetStore_LookupFuzzyRanking(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	require.NoError(t, store.UpsertFile(ctx, "m.py", []Snippet{
		{Name: "load_config_file", Type: TypeFunction, Code: "a", LineStart: 1, LineEnd: 1},
		{Name: "Loader.config", Type: TypeFunction, Code: "b", LineStart: 2, LineEnd: 2},
		{Name: "config", Type: TypeFunction, Code: "c", LineStart: 3, LineEnd: 3},
		{Name: "config_path", Type: TypeFunction, Code: "d", LineStart: 4, LineEnd: 4},
		{Name: "configure", Type: TypeFunction, Code: "e", LineStart: 5, LineEnd: 5},
		{Name: "unrelated", Type: TypeFunction, Code: "f", LineStart: 6, LineEnd: 6},
		{Name: "100%_done", Type: TypeFunction, Code: "g", LineStart: 7, LineEnd: 7},
	}))

	got, err := store.Lookup(ctx, "m.py", "config", false)
	require.NoError(t, err)
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"config", "configure", "config_path", "Loader.config", "load_config_file"}, names)

	// LIKE wildcards in the query are literal.
	got, err = store.Lookup(ctx, "m.py", "%_", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100%_done", got[0].Name)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"def run(self, x)":  "run",
		"class Repo(Base):": "Repo",
		"async def fetch()": "fetch",
		"  User.validate  ": "User.validate",
		"helper":            "helper",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestSnippetStore_DeletePruneStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)
	for _, f := range []string{"a.py", "b.py", "c.py"} {
		require.NoError(t, store.UpsertFile(ctx, f, []Snippet{
			{Name: "f", Type: TypeFunction, Code: "def f(): pass", LineStart: 1, LineEnd: 1},
			{Name: "import os", Type: TypeImport, Code: "import os", LineStart: 2, LineEnd: 2},
		}))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.SnippetCount)
	assert.Equal(t, 3, stats.FileCount)
	assert.Equal(t, map[string]int{"function": 3, "import": 3}, stats.TypeDistribution)

	require.NoError(t, store.DeleteFile(ctx, "b.py"))
	files, err := store.TrackedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "c.py"}, files)

	removed, err := store.Prune(ctx, []string{"c.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, removed)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SnippetCount)
	assert.Equal(t, 1, stats.FileCount)
}

func TestSnippetStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStoreFile(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file := fmt.Sprintf("f%d.py", i)
			errs <- store.UpsertFile(ctx, file, []Snippet{
				{Name: "f", Type: TypeFunction, Code: "pass", LineStart: 1, LineEnd: 1},
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.SnippetCount)
}

func TestSnippetStore_Closed(t *testing.T) {
	t.Parallel()

	store, err := Open(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err = store.UpsertFile(context.Background(), "a.py", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
