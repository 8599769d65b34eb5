package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

var errNoOwner = errors.New("owning class not found")

// Enricher resolves calls, base classes and return types across a batch of
// symbol tables. It is not safe for concurrent use on the same batch; run it
// once all per-file extraction has finished.
type Enricher struct {
	logger *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Enricher{logger: logger}
}

// batchIndex is built once per pass and only read afterwards.
type batchIndex struct {
	tables  []*extraction.SymbolTable
	byPath  map[string]*extraction.SymbolTable
	modules *ModuleMap
}

// Enrich resolves the batch. Files are processed in lexicographic path order;
// name lookups try the caller's own file first, then every file in that
// order, and the first match wins. Only context cancellation is returned as
// an error; resolution failures become warnings.
func (e *Enricher) Enrich(ctx context.Context, tables []*extraction.SymbolTable) (*Result, error) {
	sorted := append([]*extraction.SymbolTable(nil), tables...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	paths := make([]string, len(sorted))
	idx := &batchIndex{tables: sorted, byPath: make(map[string]*extraction.SymbolTable, len(sorted))}
	for i, t := range sorted {
		paths[i] = t.Path
		idx.byPath[t.Path] = t
	}
	idx.modules = NewModuleMap(paths)

	res := &Result{Tables: sorted, Modules: idx.modules}
	seen := make(map[CallEdge]struct{})

	for _, table := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if table.Module != nil {
			table.Module.Name = idx.modules.Module(table.Path)
			table.Module.QualifiedName = table.Module.Name
		}

		for _, cls := range table.Classes {
			_ = e.guard(res, table.Path, cls.QualifiedName, StageBases, func() error {
				idx.resolveBases(table, cls)
				return nil
			})
		}

		for _, sym := range table.Callables() {
			_ = e.guard(res, table.Path, sym.QualifiedName, StageCalls, func() error {
				edges, err := idx.resolveCalls(table, sym)
				for _, edge := range edges {
					if _, dup := seen[edge]; dup {
						continue
					}
					seen[edge] = struct{}{}
					res.Edges = append(res.Edges, edge)
				}
				return err
			})

			if err := e.guard(res, table.Path, sym.QualifiedName, StageReturns, func() error {
				rt, err := idx.inferReturn(table, sym)
				sym.ReturnType = rt
				return err
			}); err != nil {
				sym.ReturnType = extraction.UnknownType
			}
		}
	}

	sort.Slice(res.Edges, func(i, j int) bool { return res.Edges[i].less(res.Edges[j]) })
	res.Graph = NewDependencyGraph(sorted, idx.modules, res.Edges)

	e.logger.Debug("enriched batch",
		"files", len(sorted),
		"edges", len(res.Edges),
		"warnings", len(res.Warnings))
	return res, nil
}

// guard runs one best-effort step. A returned error or a panic is recorded
// as a warning and handed back to the caller.
func (e *Enricher) guard(res *Result, path, symbol, stage string, step func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			res.Warnings = append(res.Warnings, EnrichmentWarning{Path: path, Symbol: symbol, Stage: stage, Err: err})
			e.logger.Warn("enrichment step failed",
				"path", path,
				"symbol", symbol,
				"stage", stage,
				"error", err)
		}
	}()
	return step()
}

// searchOrder yields the caller's own table followed by every other table
// in path order.
func (b *batchIndex) searchOrder(own *extraction.SymbolTable) []*extraction.SymbolTable {
	order := make([]*extraction.SymbolTable, 0, len(b.tables))
	if own != nil {
		order = append(order, own)
	}
	for _, t := range b.tables {
		if t != own {
			order = append(order, t)
		}
	}
	return order
}

func (b *batchIndex) findFunction(own *extraction.SymbolTable, name string) (*extraction.SymbolTable, *extraction.Symbol) {
	for _, t := range b.searchOrder(own) {
		if f := t.Function(name); f != nil {
			return t, f
		}
	}
	return nil, nil
}

// findClass resolves a class reference, plain or module-qualified.
func (b *batchIndex) findClass(own *extraction.SymbolTable, ref string) (*extraction.SymbolTable, *extraction.ClassSymbol) {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		path, ok := b.modules.Lookup(ref[:i])
		if !ok {
			return nil, nil
		}
		t := b.byPath[path]
		if c := t.Class(ref[i+1:]); c != nil {
			return t, c
		}
		return nil, nil
	}
	for _, t := range b.searchOrder(own) {
		if c := t.Class(ref); c != nil {
			return t, c
		}
	}
	return nil, nil
}

func (b *batchIndex) resolveBases(table *extraction.SymbolTable, cls *extraction.ClassSymbol) {
	for i := range cls.Bases {
		base := &cls.Bases[i]
		t, c := b.findClass(table, base.Name)
		if c == nil || c == cls {
			continue
		}
		base.Resolved = true
		base.Path = t.Path
		base.Module = b.modules.Module(t.Path)
	}
}

// ownerOf returns the class that holds method, matched by identity so that
// a class name bound twice in one file keeps its methods apart.
func ownerOf(table *extraction.SymbolTable, method *extraction.Symbol) *extraction.ClassSymbol {
	for _, cls := range table.Classes {
		if cls.Name != method.Parent {
			continue
		}
		for _, m := range cls.Methods {
			if m == method {
				return cls
			}
		}
	}
	return nil
}

// resolveCalls matches bare calls against top-level functions of the batch
// and self calls against the caller's own class. Other shapes are ignored.
func (b *batchIndex) resolveCalls(table *extraction.SymbolTable, sym *extraction.Symbol) ([]CallEdge, error) {
	module := b.modules.Module(table.Path)
	var owner *extraction.ClassSymbol
	if sym.Kind == extraction.KindMethod {
		owner = ownerOf(table, sym)
	}

	var edges []CallEdge
	for _, site := range sym.CallSites {
		switch site.Shape {
		case extraction.CallBare:
			t, f := b.findFunction(table, site.Name)
			if f == nil {
				continue
			}
			edges = append(edges, CallEdge{
				Caller:       sym.QualifiedName,
				CallerModule: module,
				Callee:       f.QualifiedName,
				CalleeModule: b.modules.Module(t.Path),
			})
		case extraction.CallSelf:
			if sym.Kind != extraction.KindMethod {
				continue
			}
			if owner == nil {
				return edges, fmt.Errorf("%w: %s", errNoOwner, sym.Parent)
			}
			m := owner.Method(site.Name)
			if m == nil {
				continue
			}
			edges = append(edges, CallEdge{
				Caller:       sym.QualifiedName,
				CallerModule: module,
				Callee:       m.QualifiedName,
				CalleeModule: module,
			})
		}
	}
	return edges, nil
}

// builtinTypes are callables whose call result is their own name.
var builtinTypes = map[string]bool{
	"bool": true, "bytearray": true, "bytes": true, "complex": true, "dict": true,
	"float": true, "frozenset": true, "int": true, "list": true, "object": true,
	"set": true, "str": true, "tuple": true,
}

// inferReturn returns the declared annotation verbatim, or a best-effort
// type built from the symbol's direct return expressions: "None" when there
// are none, the single type, or a sorted "A | B" union.
func (b *batchIndex) inferReturn(table *extraction.SymbolTable, sym *extraction.Symbol) (string, error) {
	for _, in := range sym.Inner {
		if rt, err := b.inferReturn(table, in); err == nil {
			in.ReturnType = rt
		} else {
			in.ReturnType = extraction.UnknownType
		}
	}

	if sym.ReturnAnnotation != "" {
		return sym.ReturnAnnotation, nil
	}
	if len(sym.Returns) == 0 {
		return "None", nil
	}

	types := make(map[string]struct{})
	for _, expr := range sym.Returns {
		t, err := b.exprType(table, sym, expr)
		if err != nil {
			return extraction.UnknownType, err
		}
		types[t] = struct{}{}
	}
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, " | "), nil
}

func (b *batchIndex) exprType(table *extraction.SymbolTable, sym *extraction.Symbol, expr extraction.TypeExpr) (string, error) {
	switch expr.Kind {
	case extraction.TypeLiteral:
		return expr.Name, nil

	case extraction.TypeCall:
		if builtinTypes[expr.Name] {
			return expr.Name, nil
		}
		if _, c := b.findClass(table, expr.Name); c != nil {
			return c.Name, nil
		}
		if !strings.Contains(expr.Name, ".") {
			if _, f := b.findFunction(table, expr.Name); f != nil && f.ReturnAnnotation != "" {
				return f.ReturnAnnotation, nil
			}
		}

	case extraction.TypeName:
		if expr.Name == "self" && sym.Kind == extraction.KindMethod {
			if ownerOf(table, sym) == nil {
				return "", fmt.Errorf("%w: %s", errNoOwner, sym.Parent)
			}
			return sym.Parent, nil
		}
		for _, p := range sym.Params {
			if p.Name == expr.Name && p.Annotation != "" {
				return p.Annotation, nil
			}
		}
	}
	return extraction.UnknownType, nil
}
