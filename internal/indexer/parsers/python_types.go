package parsers

import (
	"strings"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// exprType maps an expression node to a best-effort TypeExpr. Unrecognized
// shapes yield Unknown.
func exprType(node *sitter.Node, src []byte) extraction.TypeExpr {
	if node == nil {
		return extraction.Unknown()
	}
	switch node.Kind() {
	case "string", "concatenated_string":
		text := strings.TrimLeft(nodeText(node, src), " \t")
		if prefix := stringPrefix(text); strings.ContainsAny(prefix, "bB") {
			return literal("bytes")
		}
		return literal("str")
	case "integer":
		return literal("int")
	case "float":
		return literal("float")
	case "true", "false", "comparison_operator", "not_operator":
		return literal("bool")
	case "none":
		return literal("None")
	case "list", "list_comprehension":
		return literal("list")
	case "dictionary", "dictionary_comprehension":
		return literal("dict")
	case "set", "set_comprehension":
		return literal("set")
	case "tuple":
		return literal("tuple")
	case "identifier":
		return extraction.TypeExpr{Kind: extraction.TypeName, Name: nodeText(node, src)}
	case "attribute":
		return extraction.TypeExpr{Kind: extraction.TypeAttribute, Name: collapseSpace(nodeText(node, src))}
	case "call":
		fn := node.ChildByFieldName("function")
		if fn != nil && (fn.Kind() == "identifier" || fn.Kind() == "attribute") {
			return extraction.TypeExpr{Kind: extraction.TypeCall, Name: collapseSpace(nodeText(fn, src))}
		}
	case "parenthesized_expression":
		if inner := namedChildren(node); len(inner) == 1 {
			return exprType(inner[0], src)
		}
	case "unary_operator":
		if operand := node.ChildByFieldName("argument"); operand != nil {
			if t := exprType(operand, src); t.Kind == extraction.TypeLiteral && (t.Name == "int" || t.Name == "float") {
				return t
			}
		}
	}
	return extraction.Unknown()
}

// annotationType maps a type annotation node to a TypeExpr.
func annotationType(node *sitter.Node, src []byte) extraction.TypeExpr {
	if node == nil {
		return extraction.Unknown()
	}
	switch node.Kind() {
	case "type":
		if inner := namedChildren(node); len(inner) == 1 {
			return annotationType(inner[0], src)
		}
	case "identifier":
		return extraction.TypeExpr{Kind: extraction.TypeName, Name: nodeText(node, src)}
	case "none":
		return extraction.TypeExpr{Kind: extraction.TypeName, Name: "None"}
	case "attribute":
		return extraction.TypeExpr{Kind: extraction.TypeAttribute, Name: collapseSpace(nodeText(node, src))}
	case "string":
		// Forward reference: "User"
		if name := strings.TrimSpace(stringContent(nodeText(node, src))); name != "" {
			return extraction.TypeExpr{Kind: extraction.TypeName, Name: name}
		}
	case "generic_type":
		named := namedChildren(node)
		if len(named) == 0 {
			break
		}
		expr := extraction.TypeExpr{Kind: extraction.TypeGeneric, Name: nodeText(named[0], src)}
		for _, param := range named[1:] {
			for _, arg := range namedChildren(param) {
				expr.Args = append(expr.Args, annotationType(arg, src))
			}
		}
		return expr
	case "subscript":
		value := node.ChildByFieldName("value")
		if value == nil {
			break
		}
		expr := extraction.TypeExpr{Kind: extraction.TypeGeneric, Name: collapseSpace(nodeText(value, src))}
		for _, arg := range namedChildren(node) {
			if sameNode(arg, value) {
				continue
			}
			if arg.Kind() == "tuple" || arg.Kind() == "expression_list" {
				for _, el := range namedChildren(arg) {
					expr.Args = append(expr.Args, annotationType(el, src))
				}
				continue
			}
			expr.Args = append(expr.Args, annotationType(arg, src))
		}
		return expr
	}
	return extraction.Unknown()
}

func literal(name string) extraction.TypeExpr {
	return extraction.TypeExpr{Kind: extraction.TypeLiteral, Name: name}
}

// stringPrefix returns the prefix letters (r, b, f, u) before the opening quote.
func stringPrefix(text string) string {
	i := strings.IndexAny(text, `"'`)
	if i < 0 {
		return ""
	}
	return text[:i]
}

// stringContent strips the prefix and quotes from a string literal.
func stringContent(text string) string {
	i := strings.IndexAny(text, `"'`)
	if i < 0 {
		return text
	}
	body := text[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(body, q) && strings.HasSuffix(body, q) && len(body) >= 2*len(q) {
			return body[len(q) : len(body)-len(q)]
		}
	}
	return body
}

// cleanDoc normalizes docstring indentation the way Python's inspect.cleandoc
// does: the first line is left-trimmed, the common indent of the remaining
// lines is removed, and blank leading and trailing lines are dropped.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \r")
	}
	lines[0] = strings.TrimLeft(lines[0], " ")

	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if content == "" {
			continue
		}
		if indent := len(line) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
