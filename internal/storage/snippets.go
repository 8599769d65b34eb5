package storage

import (
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/source"
)

// SnippetsFromTable converts an extracted table into storable snippets:
// one per import statement, class, method ("Class.method") and top-level
// function. Code is the exact source span. When a name repeats, the later
// definition replaces the earlier one.
func SnippetsFromTable(unit *source.Unit, table *extraction.SymbolTable) []Snippet {
	dir := filepath.Dir(unit.Path)
	var out []Snippet
	index := make(map[string]int)

	add := func(sn Snippet) {
		sn.FilePath = unit.Path
		sn.DirPath = dir
		sn.Code = unit.Span(sn.LineStart, sn.LineEnd)
		sn.CharCount = utf8.RuneCountInString(sn.Code)
		if i, ok := index[sn.Name]; ok {
			out[i] = sn
			return
		}
		index[sn.Name] = len(out)
		out = append(out, sn)
	}

	for _, stmt := range table.Statements {
		add(Snippet{
			Name:      stmt.Text,
			Type:      TypeImport,
			LineStart: stmt.StartLine,
			LineEnd:   stmt.EndLine,
		})
	}
	for _, cls := range table.Classes {
		tags := symbolTags(&cls.Symbol)
		for _, b := range cls.Bases {
			tags = append(tags, "base:"+b.Name)
		}
		sort.Strings(tags)
		add(Snippet{
			Name:        cls.QualifiedName,
			Type:        TypeClass,
			Description: cls.Doc,
			LineStart:   cls.StartLine,
			LineEnd:     cls.EndLine,
			Tags:        tags,
		})
		for _, m := range cls.Methods {
			add(functionSnippet(m))
		}
	}
	for _, fn := range table.Functions {
		add(functionSnippet(fn))
	}
	return out
}

func functionSnippet(sym *extraction.Symbol) Snippet {
	tags := symbolTags(sym)
	sort.Strings(tags)
	return Snippet{
		Name:        sym.QualifiedName,
		Type:        TypeFunction,
		Description: sym.Doc,
		LineStart:   sym.StartLine,
		LineEnd:     sym.EndLine,
		Tags:        tags,
	}
}

func symbolTags(sym *extraction.Symbol) []string {
	var tags []string
	if sym.Kind == extraction.KindMethod {
		tags = append(tags, "method")
	}
	if sym.Async {
		tags = append(tags, "async")
	}
	for _, d := range sym.Decorators {
		tags = append(tags, "decorator:"+d)
	}
	return tags
}
