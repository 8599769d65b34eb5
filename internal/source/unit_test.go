package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnit_Lines(t *testing.T) {
	t.Parallel()

	unit := NewUnit("a.py", time.Time{}, []byte("\ufeffimport os\r\n\r\ndef f():\r\n    pass\r\n"))

	assert.Equal(t, 4, unit.LineCount())
	assert.Equal(t, "import os", unit.Line(1))
	assert.Equal(t, "", unit.Line(2))
	assert.Equal(t, "    pass", unit.Line(4))
	assert.Equal(t, "", unit.Line(5))
	assert.Equal(t, "def f():\n    pass", unit.Span(3, 4))
	assert.Equal(t, "def f():\n    pass", unit.Span(3, 99))
	assert.Equal(t, "", unit.Span(4, 3))
}

func TestLoader_CachesUntilModified(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	loader, err := NewLoader(16)
	require.NoError(t, err)
	defer loader.Close()

	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("x = 1\ny = 2\n"), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := loader.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, third.LineCount())
}

func TestLoader_SameSizeRewriteWithinMtimeGranularity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	loader, err := NewLoader(16)
	require.NoError(t, err)
	defer loader.Close()

	first, err := loader.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("y = 2\n"), 0644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "y = 2", second.Line(1))
}

func TestLoader_SettledFileSkipsRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	loader, err := NewLoader(16)
	require.NoError(t, err)
	defer loader.Close()

	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.True(t, first.ModTime.Before(time.Now().Add(-racyWindow)))
}

func TestLoader_MissingFile(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(0)
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}
