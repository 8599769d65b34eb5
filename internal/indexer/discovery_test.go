package indexer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileDiscovery:
// - "**/" patterns match root-level and nested files
// - Ignored directories are skipped, including the state directory
// - Results are sorted
// - Invalid patterns are rejected

func TestFileDiscovery_DiscoverFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.py":                  "",
		"pkg/util.py":              "",
		"pkg/sub/deep.pyw":         "",
		"README.md":                "",
		"venv/lib/site.py":         "",
		".codelens/cache.py":       "",
		"pkg/__pycache__/x.py":     "",
		"tests/fixtures/sample.py": "",
	})

	fd, err := NewFileDiscovery(dir, []string{"**/*.py", "**/*.pyw"}, []string{"venv/**", "**/__pycache__/**", "tests/fixtures"})
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "main.py"),
		filepath.Join(dir, "pkg/sub/deep.pyw"),
		filepath.Join(dir, "pkg/util.py"),
	}, files)
}

func TestFileDiscovery_Matches(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery("/root", []string{"**/*.py"}, []string{"build/**"})
	require.NoError(t, err)

	assert.True(t, fd.Matches("a.py"))
	assert.True(t, fd.Matches("x/y/a.py"))
	assert.False(t, fd.Matches("a.go"))
	assert.False(t, fd.Matches("build/gen.py"))
	assert.False(t, fd.Matches(".codelens/x.py"))

	rel, err := fd.Rel("/root/x/a.py")
	require.NoError(t, err)
	assert.Equal(t, "x/a.py", rel)

	_, err = fd.Rel("/elsewhere/a.py")
	assert.Error(t, err)
}

func TestFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(t.TempDir(), []string{"[unclosed"}, nil)
	assert.Error(t, err)
}
