package extraction

import "strings"

// TypeExprKind tags the variant held by a TypeExpr.
type TypeExprKind int

const (
	TypeUnknown TypeExprKind = iota
	// TypeName is a bare identifier such as "str" or "self".
	TypeName
	// TypeAttribute is a dotted reference such as "models.User".
	TypeAttribute
	// TypeGeneric is a subscripted reference such as "list[int]".
	TypeGeneric
	// TypeLiteral is a builtin literal; Name holds the builtin type.
	TypeLiteral
	// TypeCall is a call of a name or dotted name; Name holds the callee.
	TypeCall
)

// TypeExpr is a best-effort description of an annotation or expression.
// The zero value is Unknown.
type TypeExpr struct {
	Kind TypeExprKind
	Name string
	Args []TypeExpr
}

// Unknown returns the Unknown variant.
func Unknown() TypeExpr { return TypeExpr{} }

// IsUnknown reports whether e carries no usable information.
func (e TypeExpr) IsUnknown() bool { return e.Kind == TypeUnknown }

// String renders the expression in source-like form.
func (e TypeExpr) String() string {
	switch e.Kind {
	case TypeName, TypeAttribute, TypeLiteral:
		return e.Name
	case TypeCall:
		return e.Name + "()"
	case TypeGeneric:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		return e.Name + "[" + strings.Join(args, ", ") + "]"
	default:
		return UnknownType
	}
}
