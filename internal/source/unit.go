// Package source loads Python files into immutable, line-indexed units.
package source

import (
	"strings"
	"time"
)

const utf8BOM = "\ufeff"

// Unit is the text of one source file captured for a single parse pass.
// Text and Lines never change after construction.
type Unit struct {
	Path    string
	ModTime time.Time
	Text    []byte
	lines   []string
}

// NewUnit builds a Unit from raw file contents.
// A leading UTF-8 BOM is dropped and trailing carriage returns are removed
// from each line so that CRLF files index the same as LF files.
func NewUnit(path string, modTime time.Time, content []byte) *Unit {
	text := strings.TrimPrefix(string(content), utf8BOM)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	// A terminating newline does not start another line.
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return &Unit{
		Path:    path,
		ModTime: modTime,
		Text:    []byte(text),
		lines:   lines,
	}
}

// LineCount returns the number of lines in the unit.
func (u *Unit) LineCount() int {
	return len(u.lines)
}

// Line returns the 1-indexed line n, or "" when n is out of range.
func (u *Unit) Line(n int) string {
	if n < 1 || n > len(u.lines) {
		return ""
	}
	return u.lines[n-1]
}

// Span returns lines start..end (1-indexed, inclusive) joined with "\n".
// The range is clamped to the unit.
func (u *Unit) Span(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(u.lines) {
		end = len(u.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(u.lines[start-1:end], "\n")
}
