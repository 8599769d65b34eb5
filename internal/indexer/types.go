package indexer

import (
	"fmt"
	"time"

	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

// FileFailure records a file that produced no symbol table. Err is a
// *parsers.ParseError for syntax errors.
type FileFailure struct {
	Path string
	Err  error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f FileFailure) Unwrap() error { return f.Err }

// Batch is the outcome of one pipeline run.
type Batch struct {
	RunID string
	// Files are the inputs, sorted and deduplicated.
	Files []string
	// Tables are the enriched tables of successfully extracted files, in
	// path order. Failed files contribute no table.
	Tables   []*extraction.SymbolTable
	Failures []FileFailure
	Result   *graph.Result

	// Stored counts files whose snippets were written, Skipped those that
	// were already up to date.
	Stored  int
	Skipped int
	Pruned  []string

	Duration time.Duration
}

// Failed reports whether path is among the failures.
func (b *Batch) Failed(path string) bool {
	for _, f := range b.Failures {
		if f.Path == path {
			return true
		}
	}
	return false
}
