package extraction

// Kind classifies a Symbol.
type Kind string

const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// UnknownType is recorded wherever a best-effort type cannot be determined.
const UnknownType = "unknown"

// Param is one declared parameter of a function or method.
type Param struct {
	Name string
	// Annotation is the declared type text, verbatim. Empty when absent.
	Annotation string
	Type       TypeExpr
}

// Symbol is one named code entity extracted from a source unit.
type Symbol struct {
	Kind Kind
	// Name is the bare identifier as written in source.
	Name string
	// QualifiedName is "Class.method" for methods and Name otherwise.
	QualifiedName string
	// Parent is the owning class name for methods.
	Parent string

	Params []Param
	// ReturnAnnotation is the declared return type text, verbatim.
	ReturnAnnotation string
	// ReturnType is filled by enrichment: the annotation when present,
	// otherwise the inferred type or union.
	ReturnType string

	Doc        string
	Decorators []string
	Async      bool

	// Inner holds nested function definitions. They are owned by this
	// symbol and never ranked on their own.
	Inner []*Symbol

	StartLine int
	EndLine   int

	// CallSites and Returns are raw syntax facts for the enricher.
	// CallSites include calls made from nested functions.
	CallSites []CallSite
	Returns   []TypeExpr
}

// ClassSymbol is a class with its bases, attributes and methods.
type ClassSymbol struct {
	Symbol
	Bases      []BaseRef
	Attributes []Attribute
	Methods    []*Symbol
}

// Method returns the method bound to the bare name, or nil. The last
// definition wins.
func (c *ClassSymbol) Method(name string) *Symbol {
	for i := len(c.Methods) - 1; i >= 0; i-- {
		if c.Methods[i].Name == name {
			return c.Methods[i]
		}
	}
	return nil
}

// BaseRef is a base-class reference. Unresolved references keep their raw name.
type BaseRef struct {
	Name     string
	Resolved bool
	// Module and Path identify the defining file once resolved.
	Module string
	Path   string
}

// Attribute is a simple assignment in a class body.
type Attribute struct {
	Name string
	Type string
}

// CallShape is the syntactic form of a call expression.
type CallShape string

const (
	// CallBare is f(...).
	CallBare CallShape = "bare"
	// CallSelf is self.f(...).
	CallSelf CallShape = "self"
	// CallOther is any other callee expression.
	CallOther CallShape = "other"
)

// CallSite is one call expression inside a function body.
type CallSite struct {
	Shape CallShape
	Name  string
	Line  int
}

// ImportGroup merges all names imported from one origin module.
type ImportGroup struct {
	Module string
	// Names are imported names, merged and sorted. Empty for plain
	// "import module".
	Names []string
	// Aliases maps an imported name (or the module itself) to its alias.
	Aliases map[string]string
}

// ImportStatement is one import statement in source order.
type ImportStatement struct {
	// Text is the normalized statement, e.g. "from os import path, sep".
	Text      string
	StartLine int
	EndLine   int
}

// SymbolTable holds everything extracted from one source unit.
type SymbolTable struct {
	Path     string
	Language string
	// Module is the module symbol; its Doc is the module docstring.
	Module    *Symbol
	Classes   []*ClassSymbol
	Functions []*Symbol
	Imports   []ImportGroup
	// Statements lists import statements in source order.
	Statements []ImportStatement
}

// Class returns the class bound to name, or nil. A later definition
// rebinds the name, so the last match wins.
func (t *SymbolTable) Class(name string) *ClassSymbol {
	for i := len(t.Classes) - 1; i >= 0; i-- {
		if t.Classes[i].Name == name {
			return t.Classes[i]
		}
	}
	return nil
}

// Function returns the top-level function bound to name, or nil. The last
// definition wins.
func (t *SymbolTable) Function(name string) *Symbol {
	for i := len(t.Functions) - 1; i >= 0; i-- {
		if t.Functions[i].Name == name {
			return t.Functions[i]
		}
	}
	return nil
}

// Callables returns free functions followed by every class's methods,
// in source order.
func (t *SymbolTable) Callables() []*Symbol {
	out := make([]*Symbol, 0, len(t.Functions))
	out = append(out, t.Functions...)
	for _, c := range t.Classes {
		out = append(out, c.Methods...)
	}
	return out
}
