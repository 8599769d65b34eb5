package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineHandler_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "debug").With("run", "r1")
	logger.Info("indexed file", "path", "a.py", "symbols", 4)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "[info] indexed file | run=r1 path=a.py symbols=4\n"), line)
}

func TestLineHandler_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn")
	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[warn] shown")
}

func TestLineHandler_Group(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, "info").WithGroup("store").Info("opened", "path", "x.db")
	assert.Contains(t, buf.String(), "[info] opened | store.path=x.db")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	assert.True(t, ValidLevel("info"))
	assert.False(t, ValidLevel("verbose"))
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
