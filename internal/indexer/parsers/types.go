package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/source"
)

// Extractor turns one source unit into a symbol table.
type Extractor interface {
	Language() string
	Extensions() []string
	Extract(ctx context.Context, unit *source.Unit) (*extraction.SymbolTable, error)
}

// Registry dispatches files to extractors by extension. Build it once and
// pass it to the components that need it.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry registers each extractor under all of its extensions.
// Later extractors win on conflicting extensions.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// NewDefaultRegistry returns a registry holding the Python extractor.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewPythonExtractor())
}

// ForFile returns the extractor for path's extension.
func (r *Registry) ForFile(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.ForFile(path)
	return ok
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract runs the matching extractor on unit.
func (r *Registry) Extract(ctx context.Context, unit *source.Unit) (*extraction.SymbolTable, error) {
	e, ok := r.ForFile(unit.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, unit.Path)
	}
	return e.Extract(ctx, unit)
}
