package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvp-joe/codelens/internal/indexer"
	"github.com/mvp-joe/codelens/internal/project"
	"github.com/mvp-joe/codelens/internal/storage"
	"github.com/mvp-joe/codelens/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CLI commands:
// - Every subcommand is registered on the root command
// - summarize prints text, JSON and the full report, and reports skipped files
// - lookup prints matching snippets with their location and handles no match
// - stats prints counts per snippet type after indexing
// - clean removes the database and its journal files and tolerates absence
// - the progress reporter writes discovery, enrichment and batch summaries
// - formatNumber inserts thousands separators

func newCLIProject(t *testing.T) *project.Project {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"app.py":    "from lib import helper\n\n\ndef main():\n    helper()\n",
		"lib.py":    "class Store:\n    def save(self, item):\n        return item\n\n\ndef helper():\n    return Store().save(1)\n",
		"broken.py": "def broken(:\n    pass\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	p, err := project.Open(dir, nil)
	require.NoError(t, err)
	return p
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"index", "summarize", "lookup", "stats", "clean", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("root"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestExecuteSummarize_Text(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	var out, errOut bytes.Buffer

	require.NoError(t, executeSummarize(context.Background(), p, summarizeOptions{Format: "text"}, &out, &errOut))
	assert.Contains(t, out.String(), "## classes (")
	assert.Contains(t, out.String(), "class Store")
	assert.Contains(t, errOut.String(), "broken.py")
}

func TestExecuteSummarize_JSON(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	budget := 40.0
	var out bytes.Buffer

	opts := summarizeOptions{Budget: &budget, Focus: []string{"save"}, Format: "json"}
	require.NoError(t, executeSummarize(context.Background(), p, opts, &out, &bytes.Buffer{}))

	var s summary.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, 40.0, s.Budget)
	assert.NotEmpty(t, s.Sections)
}

func TestExecuteSummarize_Full(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	var out bytes.Buffer

	require.NoError(t, executeSummarize(context.Background(), p, summarizeOptions{Full: true, Format: "text"}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "# call graph")
	assert.Contains(t, out.String(), "def save(item)")

	err := executeSummarize(context.Background(), p, summarizeOptions{Format: "xml"}, &out, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown format")
}

func TestExecuteLookup(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, executeLookup(ctx, p, project.LookupOptions{File: "lib.py", Name: "save"}, "text", &out))
	assert.Equal(t, "# lib.py:2-3 Store.save (function)\n    def save(self, item):\n        return item\n", out.String())

	out.Reset()
	require.NoError(t, executeLookup(ctx, p, project.LookupOptions{File: "lib.py", Name: "nothing"}, "text", &out))
	assert.Equal(t, "No snippets matching \"nothing\" in lib.py\n", out.String())

	out.Reset()
	require.NoError(t, executeLookup(ctx, p, project.LookupOptions{File: "lib.py", Name: "Store"}, "json", &out))
	var snippets []storage.Snippet
	require.NoError(t, json.Unmarshal(out.Bytes(), &snippets))
	require.Len(t, snippets, 1)
	assert.Equal(t, storage.TypeClass, snippets[0].Type)

	err := executeLookup(ctx, p, project.LookupOptions{File: "broken.py", Name: "broken"}, "text", &out)
	assert.ErrorContains(t, err, "lookup failed")
}

func TestExecuteStats(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	ctx := context.Background()
	_, err := p.Index(ctx, project.IndexOptions{})
	require.NoError(t, err)

	store, err := p.OpenStore()
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	require.NoError(t, executeStats(ctx, store, false, &out))
	text := out.String()
	assert.Contains(t, text, "Files:    2\n")
	assert.Contains(t, text, "class:    1\n")
	assert.Contains(t, text, "function: 3\n")
	assert.Contains(t, text, "import:   1\n")

	out.Reset()
	require.NoError(t, executeStats(ctx, store, true, &out))
	var stats storage.Stats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 5, stats.SnippetCount)
}

func TestExecuteClean(t *testing.T) {
	t.Parallel()

	p := newCLIProject(t)
	_, err := p.Index(context.Background(), project.IndexOptions{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.DBPath()+"-wal", []byte("wal"), 0644))

	var out bytes.Buffer
	require.NoError(t, executeClean(p.DBPath(), false, &out))
	assert.Contains(t, out.String(), "✓ Removed")
	assert.NoFileExists(t, p.DBPath())
	assert.NoFileExists(t, p.DBPath()+"-wal")

	out.Reset()
	require.NoError(t, executeClean(p.DBPath(), false, &out))
	assert.Equal(t, "No snippet database found\n", out.String())

	out.Reset()
	require.NoError(t, executeClean(p.DBPath(), true, &out))
	assert.Empty(t, out.String())
}

func TestCLIProgressReporter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewCLIProgressReporter(&out, false)
	r.OnDiscoveryStart()
	r.OnDiscoveryComplete(1234)
	r.OnFileProcessingStart(2)
	r.OnFileProcessed("a.py")
	r.OnFileProcessed("b.py")
	r.OnEnrichmentStart(2)
	r.OnEnrichmentComplete(3, 1500*time.Millisecond)
	r.OnComplete(&indexer.Batch{
		Files:    []string{"a.py", "b.py", "c.py"},
		Stored:   1,
		Skipped:  1,
		Failures: []indexer.FileFailure{{Path: "c.py", Err: os.ErrNotExist}},
	})

	text := out.String()
	assert.Contains(t, text, "Processing 1,234 source files")
	assert.Contains(t, text, "Resolving calls across 2 modules")
	assert.Contains(t, text, "✓ Call graph built: 3 edges (took 1.5s)")
	assert.Contains(t, text, "✓ Indexing complete: 3 files")
	assert.Contains(t, text, "Failed:    1")
	assert.True(t, strings.Contains(text, "✗ c.py: file does not exist"))

	var quiet bytes.Buffer
	q := NewCLIProgressReporter(&quiet, true)
	q.OnDiscoveryStart()
	q.OnFileProcessingStart(1)
	q.OnFileProcessed("a.py")
	q.OnComplete(&indexer.Batch{})
	assert.Empty(t, quiet.String())
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234:    "-1,234",
		-999:     "-999",
		10000000: "10,000,000",
	}
	for n, want := range tests {
		assert.Equal(t, want, formatNumber(n))
	}
}
