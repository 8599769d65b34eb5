package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeText returns the source text covered by node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// startLine returns the 1-indexed line where node begins.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLine returns the 1-indexed last line covered by node. A node ending at
// column 0 of a later row does not cover that row.
func endLine(node *sitter.Node) int {
	start, end := node.StartPosition(), node.EndPosition()
	if end.Column == 0 && end.Row > start.Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

// namedChildren returns the named children of node in order.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := node.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// children returns all children of node, named and anonymous.
func children(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := node.ChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// findChildByType finds the first child node with the given kind.
func findChildByType(node *sitter.Node, kind string) *sitter.Node {
	for _, child := range children(node) {
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// sameNode reports whether a and b cover the same byte range.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// firstBroken returns the first ERROR or MISSING node in document order.
func firstBroken(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for _, child := range children(node) {
		if broken := firstBroken(child); broken != nil {
			return broken
		}
	}
	return nil
}

// collapseSpace joins whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
