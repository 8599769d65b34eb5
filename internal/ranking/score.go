package ranking

import (
	"strings"

	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

var (
	importantNames = []string{"main", "init", "app", "manager", "controller", "service", "run"}

	importantMethodNames = []string{
		"__init__", "main", "run", "execute", "process", "start", "init", "setup", "create", "build",
	}
)

// Score returns the importance of a free function or method. The result is
// a pure function of its inputs.
func Score(sym *extraction.Symbol, edges []graph.CallEdge, focus []string, w Weights) float64 {
	var score float64
	if IsFocused(sym.QualifiedName, focus) {
		score += w.IsFocus
	}
	score += float64(len(sym.Params)) * w.ParameterCount
	score += float64(len(sym.Inner)) * w.InnerElementCount
	if sym.Doc != "" {
		score += w.Docstring
	}
	score += float64(ReferenceCount(sym.QualifiedName, edges)) * w.ReferenceCount

	if sym.Kind == extraction.KindMethod {
		if containsAny(sym.Name, importantMethodNames) {
			score += w.NameImportance
		}
	} else if containsAny(sym.Name, importantNames) {
		score += w.NameImportance * 2
	}
	return score
}

// ScoreClass returns the importance of a class. Complexity counts both
// methods and attributes.
func ScoreClass(cls *extraction.ClassSymbol, edges []graph.CallEdge, focus []string, w Weights) float64 {
	var score float64
	if IsFocused(cls.QualifiedName, focus) {
		score += w.IsFocus
	}
	score += float64(len(cls.Methods)+len(cls.Attributes)) * w.Complexity
	if len(cls.Bases) > 0 {
		score += w.Inheritance
	}
	if cls.Doc != "" {
		score += w.Docstring
	}
	score += float64(ReferenceCount(cls.QualifiedName, edges)) * w.ReferenceCount
	if containsAny(cls.Name, importantNames) {
		score += w.NameImportance
	}
	return score
}

// ReferenceCount counts edges whose callee contains name. The match is a
// plain substring test, so "User" also counts calls to "User.validate" and
// "UserRepository.add".
func ReferenceCount(name string, edges []graph.CallEdge) int {
	if name == "" {
		return 0
	}
	n := 0
	for _, e := range edges {
		if strings.Contains(e.Callee, name) {
			n++
		}
	}
	return n
}

// IsFocused reports whether any non-empty focus fragment occurs in name.
func IsFocused(name string, focus []string) bool {
	for _, f := range focus {
		if f != "" && strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func containsAny(name string, vocabulary []string) bool {
	lower := strings.ToLower(name)
	for _, v := range vocabulary {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
