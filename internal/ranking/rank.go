package ranking

import (
	"sort"

	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

// Scored is one ranked class, free function or method.
type Scored struct {
	Kind extraction.Kind `json:"kind"`
	// Name is the qualified name.
	Name   string  `json:"name"`
	Module string  `json:"module"`
	Path   string  `json:"path"`
	Line   int     `json:"line"`
	Score  float64 `json:"score"`
	Focus  bool    `json:"focus,omitempty"`

	Symbol *extraction.Symbol      `json:"-"`
	Class  *extraction.ClassSymbol `json:"-"`
}

// Rank scores every class, free function and method of tables. Nested
// functions are not ranked. The result is sorted by score descending, then
// by path, line and name, so equal inputs always rank identically.
func Rank(tables []*extraction.SymbolTable, edges []graph.CallEdge, focus []string, w Weights) []Scored {
	var out []Scored
	for _, t := range tables {
		module := ""
		if t.Module != nil {
			module = t.Module.Name
		}
		for _, cls := range t.Classes {
			out = append(out, Scored{
				Kind:   extraction.KindClass,
				Name:   cls.QualifiedName,
				Module: module,
				Path:   t.Path,
				Line:   cls.StartLine,
				Score:  ScoreClass(cls, edges, focus, w),
				Focus:  IsFocused(cls.QualifiedName, focus),
				Symbol: &cls.Symbol,
				Class:  cls,
			})
		}
		for _, sym := range t.Callables() {
			out = append(out, Scored{
				Kind:   sym.Kind,
				Name:   sym.QualifiedName,
				Module: module,
				Path:   t.Path,
				Line:   sym.StartLine,
				Score:  Score(sym, edges, focus, w),
				Focus:  IsFocused(sym.QualifiedName, focus),
				Symbol: sym,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
	return out
}

// Top returns up to n names of the given kind from a ranking.
func Top(ranked []Scored, kind extraction.Kind, n int) []string {
	var out []string
	for _, s := range ranked {
		if len(out) >= n {
			break
		}
		if s.Kind == kind {
			out = append(out, s.Name)
		}
	}
	return out
}
