package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/source"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonExtractor extracts symbol tables from Python source.
type PythonExtractor struct {
	language *sitter.Language
}

// NewPythonExtractor creates a Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{language: sitter.NewLanguage(python.Language())}
}

func (p *PythonExtractor) Language() string { return "python" }

func (p *PythonExtractor) Extensions() []string { return []string{".py", ".pyw"} }

// Extract parses unit and builds its symbol table. Any syntax error yields a
// *ParseError and a nil table.
func (p *PythonExtractor) Extract(ctx context.Context, unit *source.Unit) (*extraction.SymbolTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	tree := parser.Parse(unit.Text, nil)
	if tree == nil {
		return nil, &ParseError{Path: unit.Path, Message: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, p.parseError(unit, root)
	}

	w := &pyWalker{
		src:     unit.Text,
		imports: make(map[string]*importAccumulator),
	}
	module := strings.TrimSuffix(filepath.Base(unit.Path), filepath.Ext(unit.Path))
	table := &extraction.SymbolTable{
		Path:     unit.Path,
		Language: p.Language(),
		Module: &extraction.Symbol{
			Kind:          extraction.KindModule,
			Name:          module,
			QualifiedName: module,
			Doc:           w.docstring(root),
			StartLine:     1,
			EndLine:       unit.LineCount(),
		},
	}
	w.module(root, table)
	table.Imports = w.importGroups()
	return table, nil
}

func (p *PythonExtractor) parseError(unit *source.Unit, root *sitter.Node) *ParseError {
	broken := firstBroken(root)
	if broken == nil {
		return &ParseError{Path: unit.Path, Line: 1, Column: 1, Message: "invalid syntax"}
	}
	msg := "invalid syntax"
	if broken.IsMissing() {
		msg = fmt.Sprintf("missing %q", broken.Kind())
	} else if text := collapseSpace(nodeText(broken, unit.Text)); text != "" {
		if len(text) > 32 {
			text = text[:32] + "..."
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	pos := broken.StartPosition()
	return &ParseError{
		Path:    unit.Path,
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Message: msg,
	}
}

// pyWalker carries per-file state for one extraction pass.
type pyWalker struct {
	src     []byte
	imports map[string]*importAccumulator
	table   *extraction.SymbolTable
}

func (w *pyWalker) module(root *sitter.Node, table *extraction.SymbolTable) {
	w.table = table
	for _, node := range namedChildren(root) {
		w.statement(node)
	}
}

// statement handles one module-level statement. Imports nested in module-level
// control flow (if/try/with) are still collected.
func (w *pyWalker) statement(node *sitter.Node) {
	switch node.Kind() {
	case "import_statement", "import_from_statement":
		w.importStatement(node)
	case "class_definition":
		w.table.Classes = append(w.table.Classes, w.class(node, node, nil))
	case "function_definition":
		w.table.Functions = append(w.table.Functions, w.function(node, node, nil, extraction.KindFunction, ""))
	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		if def == nil {
			return
		}
		decorators := w.decorators(node)
		switch def.Kind() {
		case "class_definition":
			w.table.Classes = append(w.table.Classes, w.class(node, def, decorators))
		case "function_definition":
			w.table.Functions = append(w.table.Functions, w.function(node, def, decorators, extraction.KindFunction, ""))
		}
	case "if_statement", "try_statement", "with_statement", "block",
		"else_clause", "elif_clause", "except_clause", "finally_clause":
		for _, child := range namedChildren(node) {
			switch child.Kind() {
			case "import_statement", "import_from_statement", "if_statement", "try_statement",
				"with_statement", "block", "else_clause", "elif_clause", "except_clause", "finally_clause":
				w.statement(child)
			}
		}
	}
}

func (w *pyWalker) decorators(decorated *sitter.Node) []string {
	var out []string
	for _, child := range namedChildren(decorated) {
		if child.Kind() != "decorator" {
			continue
		}
		expr := ""
		if named := namedChildren(child); len(named) > 0 {
			expr = nodeText(named[0], w.src)
			if named[0].Kind() == "call" {
				expr = nodeText(named[0].ChildByFieldName("function"), w.src)
			}
		}
		out = append(out, collapseSpace(expr))
	}
	return out
}

// class builds a ClassSymbol. span is the node whose lines the symbol covers
// (the decorated_definition when decorators are present).
func (w *pyWalker) class(span, def *sitter.Node, decorators []string) *extraction.ClassSymbol {
	name := nodeText(def.ChildByFieldName("name"), w.src)
	cls := &extraction.ClassSymbol{
		Symbol: extraction.Symbol{
			Kind:          extraction.KindClass,
			Name:          name,
			QualifiedName: name,
			Decorators:    decorators,
			StartLine:     startLine(span),
			EndLine:       endLine(span),
		},
	}
	cls.Bases = w.bases(def.ChildByFieldName("superclasses"))

	body := def.ChildByFieldName("body")
	cls.Doc = w.docstring(body)

	attrIndex := make(map[string]int)
	for _, node := range namedChildren(body) {
		switch node.Kind() {
		case "function_definition":
			cls.Methods = append(cls.Methods, w.function(node, node, nil, extraction.KindMethod, name))
		case "decorated_definition":
			def := node.ChildByFieldName("definition")
			if def != nil && def.Kind() == "function_definition" {
				cls.Methods = append(cls.Methods, w.function(node, def, w.decorators(node), extraction.KindMethod, name))
			}
		case "expression_statement":
			for _, expr := range namedChildren(node) {
				attr, ok := w.attribute(expr)
				if !ok {
					continue
				}
				if i, seen := attrIndex[attr.Name]; seen {
					cls.Attributes[i] = attr
					continue
				}
				attrIndex[attr.Name] = len(cls.Attributes)
				cls.Attributes = append(cls.Attributes, attr)
			}
		}
	}
	return cls
}

func (w *pyWalker) bases(args *sitter.Node) []extraction.BaseRef {
	var out []extraction.BaseRef
	for _, arg := range namedChildren(args) {
		node := arg
		if node.Kind() == "subscript" {
			node = node.ChildByFieldName("value")
		}
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "identifier", "attribute":
			out = append(out, extraction.BaseRef{Name: collapseSpace(nodeText(node, w.src))})
		}
	}
	return out
}

// attribute reads "name = value" or "name: T [= value]" from a class body.
func (w *pyWalker) attribute(expr *sitter.Node) (extraction.Attribute, bool) {
	if expr.Kind() != "assignment" {
		return extraction.Attribute{}, false
	}
	left := expr.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return extraction.Attribute{}, false
	}
	attr := extraction.Attribute{Name: nodeText(left, w.src), Type: extraction.UnknownType}
	if typ := expr.ChildByFieldName("type"); typ != nil {
		attr.Type = collapseSpace(nodeText(typ, w.src))
		return attr, true
	}
	right := expr.ChildByFieldName("right")
	// a = b = 1 nests the second assignment on the right.
	for right != nil && right.Kind() == "assignment" {
		right = right.ChildByFieldName("right")
	}
	if t := exprType(right, w.src); t.Kind == extraction.TypeLiteral {
		attr.Type = t.Name
	}
	return attr, true
}

// function builds a function or method symbol, collecting nested functions,
// call sites and return expressions from its body.
func (w *pyWalker) function(span, def *sitter.Node, decorators []string, kind extraction.Kind, owner string) *extraction.Symbol {
	name := nodeText(def.ChildByFieldName("name"), w.src)
	sym := &extraction.Symbol{
		Kind:          kind,
		Name:          name,
		QualifiedName: name,
		Parent:        owner,
		Decorators:    decorators,
		Async:         findChildByType(def, "async") != nil,
		StartLine:     startLine(span),
		EndLine:       endLine(span),
	}
	if kind == extraction.KindMethod {
		sym.QualifiedName = owner + "." + name
	}
	if ret := def.ChildByFieldName("return_type"); ret != nil {
		sym.ReturnAnnotation = collapseSpace(nodeText(ret, w.src))
	}

	sym.Params = w.params(def.ChildByFieldName("parameters"))
	if kind == extraction.KindMethod && !hasDecorator(decorators, "staticmethod") && len(sym.Params) > 0 &&
		!strings.HasPrefix(sym.Params[0].Name, "*") {
		sym.Params = sym.Params[1:]
	}

	body := def.ChildByFieldName("body")
	sym.Doc = w.docstring(body)
	w.body(body, sym)
	return sym
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name {
			return true
		}
	}
	return false
}

// body walks statements of sym's body without crossing into nested classes.
// Nested functions become inner symbols and their call sites are folded into
// sym; their return statements are not.
func (w *pyWalker) body(node *sitter.Node, sym *extraction.Symbol) {
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "function_definition":
			w.inner(child, child, nil, sym)
			continue
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def != nil && def.Kind() == "function_definition" {
				w.inner(child, def, w.decorators(child), sym)
			}
			continue
		case "class_definition":
			continue
		case "call":
			w.callSite(child, sym)
		case "return_statement":
			if values := namedChildren(child); len(values) > 0 && values[0].Kind() != "comment" {
				sym.Returns = append(sym.Returns, exprType(values[0], w.src))
			}
		}
		w.body(child, sym)
	}
}

func (w *pyWalker) inner(span, def *sitter.Node, decorators []string, outer *extraction.Symbol) {
	in := w.function(span, def, decorators, extraction.KindFunction, "")
	in.QualifiedName = outer.QualifiedName + "." + in.Name
	outer.Inner = append(outer.Inner, in)
	outer.CallSites = append(outer.CallSites, in.CallSites...)
}

func (w *pyWalker) callSite(call *sitter.Node, sym *extraction.Symbol) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}
	site := extraction.CallSite{Shape: extraction.CallOther, Line: startLine(call)}
	switch fn.Kind() {
	case "identifier":
		site.Shape = extraction.CallBare
		site.Name = nodeText(fn, w.src)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		site.Name = nodeText(attr, w.src)
		if obj != nil && obj.Kind() == "identifier" && nodeText(obj, w.src) == "self" {
			site.Shape = extraction.CallSelf
		} else {
			site.Name = collapseSpace(nodeText(fn, w.src))
		}
	default:
		site.Name = collapseSpace(nodeText(fn, w.src))
	}
	sym.CallSites = append(sym.CallSites, site)
}

func (w *pyWalker) params(node *sitter.Node) []extraction.Param {
	var out []extraction.Param
	for _, p := range namedChildren(node) {
		var param extraction.Param
		switch p.Kind() {
		case "identifier":
			param.Name = nodeText(p, w.src)
		case "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = nodeText(p, w.src)
		case "default_parameter":
			param.Name = nodeText(p.ChildByFieldName("name"), w.src)
		case "typed_parameter":
			if named := namedChildren(p); len(named) > 0 {
				param.Name = nodeText(named[0], w.src)
			}
			param.Annotation = collapseSpace(nodeText(p.ChildByFieldName("type"), w.src))
			param.Type = annotationType(p.ChildByFieldName("type"), w.src)
		case "typed_default_parameter":
			param.Name = nodeText(p.ChildByFieldName("name"), w.src)
			param.Annotation = collapseSpace(nodeText(p.ChildByFieldName("type"), w.src))
			param.Type = annotationType(p.ChildByFieldName("type"), w.src)
		default:
			// keyword/positional separators and comments
			continue
		}
		if param.Name == "" {
			continue
		}
		out = append(out, param)
	}
	return out
}

// docstring returns the cleaned docstring of a module or block, or "".
func (w *pyWalker) docstring(block *sitter.Node) string {
	for _, stmt := range namedChildren(block) {
		if stmt.Kind() == "comment" {
			continue
		}
		if stmt.Kind() != "expression_statement" {
			return ""
		}
		exprs := namedChildren(stmt)
		if len(exprs) == 0 || exprs[0].Kind() != "string" {
			return ""
		}
		return cleanDoc(stringContent(nodeText(exprs[0], w.src)))
	}
	return ""
}

type importAccumulator struct {
	module  string
	names   map[string]struct{}
	aliases map[string]string
}

func (w *pyWalker) accumulator(module string) *importAccumulator {
	acc, ok := w.imports[module]
	if !ok {
		acc = &importAccumulator{
			module:  module,
			names:   make(map[string]struct{}),
			aliases: make(map[string]string),
		}
		w.imports[module] = acc
	}
	return acc
}

func (w *pyWalker) importStatement(node *sitter.Node) {
	var text string
	switch node.Kind() {
	case "import_statement":
		var parts []string
		for _, child := range namedChildren(node) {
			module, alias := w.importName(child)
			if module == "" {
				continue
			}
			acc := w.accumulator(module)
			part := module
			if alias != "" {
				acc.aliases[module] = alias
				part += " as " + alias
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			return
		}
		text = "import " + strings.Join(parts, ", ")

	case "import_from_statement":
		moduleNode := node.ChildByFieldName("module_name")
		module := collapseSpace(nodeText(moduleNode, w.src))
		if module == "" {
			return
		}
		acc := w.accumulator(module)
		var parts []string
		for _, child := range namedChildren(node) {
			if sameNode(child, moduleNode) {
				continue
			}
			if child.Kind() == "wildcard_import" {
				acc.names["*"] = struct{}{}
				parts = append(parts, "*")
				continue
			}
			name, alias := w.importName(child)
			if name == "" {
				continue
			}
			acc.names[name] = struct{}{}
			part := name
			if alias != "" {
				acc.aliases[name] = alias
				part += " as " + alias
			}
			parts = append(parts, part)
		}
		text = "from " + module + " import " + strings.Join(parts, ", ")
	}

	w.table.Statements = append(w.table.Statements, extraction.ImportStatement{
		Text:      text,
		StartLine: startLine(node),
		EndLine:   endLine(node),
	})
}

// importName reads a dotted_name or aliased_import.
func (w *pyWalker) importName(node *sitter.Node) (name, alias string) {
	switch node.Kind() {
	case "dotted_name", "identifier":
		return collapseSpace(nodeText(node, w.src)), ""
	case "aliased_import":
		return collapseSpace(nodeText(node.ChildByFieldName("name"), w.src)),
			nodeText(node.ChildByFieldName("alias"), w.src)
	}
	return "", ""
}

// importGroups returns accumulated imports sorted by module with sorted names.
func (w *pyWalker) importGroups() []extraction.ImportGroup {
	modules := make([]string, 0, len(w.imports))
	for m := range w.imports {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	groups := make([]extraction.ImportGroup, 0, len(modules))
	for _, m := range modules {
		acc := w.imports[m]
		group := extraction.ImportGroup{Module: m}
		for n := range acc.names {
			group.Names = append(group.Names, n)
		}
		sort.Strings(group.Names)
		if len(acc.aliases) > 0 {
			group.Aliases = acc.aliases
		}
		groups = append(groups, group)
	}
	return groups
}
