package summary

import (
	"sort"

	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

// Report is the structural view of a batch. Full and budgeted summaries
// share this shape.
type Report struct {
	Files     []FileReport     `json:"files"`
	CallGraph []graph.CallEdge `json:"call_graph"`
}

// FileReport holds the symbols of one source file.
type FileReport struct {
	Path      string           `json:"path"`
	Module    string           `json:"module"`
	Doc       string           `json:"doc,omitempty"`
	Imports   []ImportReport   `json:"imports,omitempty"`
	Classes   []ClassReport    `json:"classes,omitempty"`
	Functions []FunctionReport `json:"functions,omitempty"`
}

// ImportReport is one merged import group.
type ImportReport struct {
	Module  string            `json:"module"`
	Names   []string          `json:"names,omitempty"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

// ClassReport describes a class and its methods.
type ClassReport struct {
	Name       string            `json:"name"`
	Line       int               `json:"line"`
	Doc        string            `json:"doc,omitempty"`
	Bases      []string          `json:"bases,omitempty"`
	Attributes []AttributeReport `json:"attributes,omitempty"`
	Methods    []FunctionReport  `json:"methods,omitempty"`
}

// AttributeReport is a class-level attribute with its best-effort type.
type AttributeReport struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FunctionReport describes a function or method.
type FunctionReport struct {
	Name       string           `json:"name"`
	Line       int              `json:"line"`
	Params     []ParamReport    `json:"params,omitempty"`
	Returns    string           `json:"returns"`
	Doc        string           `json:"doc,omitempty"`
	Async      bool             `json:"async,omitempty"`
	Decorators []string         `json:"decorators,omitempty"`
	Inner      []FunctionReport `json:"inner,omitempty"`
}

// ParamReport is one parameter.
type ParamReport struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Full reports every file, symbol and edge of an enriched batch.
func Full(res *graph.Result) *Report {
	r := &Report{CallGraph: append([]graph.CallEdge(nil), res.Edges...)}
	for _, t := range res.Tables {
		fr := FileReport{Path: t.Path}
		if t.Module != nil {
			fr.Module = t.Module.Name
			fr.Doc = t.Module.Doc
		}
		for _, g := range t.Imports {
			fr.Imports = append(fr.Imports, importReport(g))
		}
		for _, c := range t.Classes {
			fr.Classes = append(fr.Classes, classReport(c))
		}
		for _, f := range t.Functions {
			fr.Functions = append(fr.Functions, functionReport(f))
		}
		r.Files = append(r.Files, fr)
	}
	return r
}

func importReport(g extraction.ImportGroup) ImportReport {
	ir := ImportReport{Module: g.Module, Names: append([]string(nil), g.Names...)}
	if len(g.Aliases) > 0 {
		ir.Aliases = make(map[string]string, len(g.Aliases))
		for k, v := range g.Aliases {
			ir.Aliases[k] = v
		}
	}
	return ir
}

func classReport(c *extraction.ClassSymbol) ClassReport {
	cr := ClassReport{Name: c.QualifiedName, Line: c.StartLine, Doc: c.Doc}
	for _, b := range c.Bases {
		cr.Bases = append(cr.Bases, b.Name)
	}
	for _, a := range c.Attributes {
		cr.Attributes = append(cr.Attributes, AttributeReport{Name: a.Name, Type: a.Type})
	}
	for _, m := range c.Methods {
		cr.Methods = append(cr.Methods, functionReport(m))
	}
	return cr
}

func functionReport(s *extraction.Symbol) FunctionReport {
	fr := FunctionReport{
		Name:       s.QualifiedName,
		Line:       s.StartLine,
		Returns:    s.ReturnType,
		Doc:        s.Doc,
		Async:      s.Async,
		Decorators: append([]string(nil), s.Decorators...),
	}
	if fr.Returns == "" {
		fr.Returns = extraction.UnknownType
	}
	for _, p := range s.Params {
		fr.Params = append(fr.Params, ParamReport{Name: p.Name, Type: p.Annotation})
	}
	for _, in := range s.Inner {
		fr.Inner = append(fr.Inner, functionReport(in))
	}
	return fr
}

// fileIndex keeps FileReports in path order while a Report is built from
// individually selected parts.
type fileIndex struct {
	files map[string]*FileReport
}

func newFileIndex() *fileIndex {
	return &fileIndex{files: make(map[string]*FileReport)}
}

func (x *fileIndex) get(t *extraction.SymbolTable) *FileReport {
	if fr, ok := x.files[t.Path]; ok {
		return fr
	}
	fr := &FileReport{Path: t.Path}
	if t.Module != nil {
		fr.Module = t.Module.Name
		fr.Doc = t.Module.Doc
	}
	x.files[t.Path] = fr
	return fr
}

func (x *fileIndex) report(edges []graph.CallEdge) *Report {
	r := &Report{CallGraph: edges}
	paths := make([]string, 0, len(x.files))
	for p := range x.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r.Files = append(r.Files, *x.files[p])
	}
	return r
}
