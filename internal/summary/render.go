package summary

import (
	"fmt"
	"io"
	"strings"
)

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func renderImport(path string, ir ImportReport) string {
	if len(ir.Names) == 0 {
		stmt := "import " + ir.Module
		if alias := ir.Aliases[ir.Module]; alias != "" {
			stmt += " as " + alias
		}
		return path + ": " + stmt
	}
	names := make([]string, len(ir.Names))
	for i, n := range ir.Names {
		names[i] = n
		if alias := ir.Aliases[n]; alias != "" {
			names[i] += " as " + alias
		}
	}
	return fmt.Sprintf("%s: from %s import %s", path, ir.Module, strings.Join(names, ", "))
}

func signature(f FunctionReport) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name
		if p.Type != "" {
			params[i] += ": " + p.Type
		}
	}
	name := f.Name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	sig := fmt.Sprintf("def %s(%s) -> %s", name, strings.Join(params, ", "), f.Returns)
	if f.Async {
		sig = "async " + sig
	}
	return sig
}

func renderFunction(path string, f FunctionReport, indent string) string {
	var b strings.Builder
	for _, d := range f.Decorators {
		fmt.Fprintf(&b, "%s@%s\n", indent, d)
	}
	fmt.Fprintf(&b, "%s%s", indent, signature(f))
	if path != "" {
		fmt.Fprintf(&b, "  # %s:%d", path, f.Line)
	}
	if f.Doc != "" {
		fmt.Fprintf(&b, "\n%s    %q", indent, firstLine(f.Doc))
	}
	return b.String()
}

func renderClass(path string, c ClassReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "class %s", c.Name)
	if len(c.Bases) > 0 {
		fmt.Fprintf(&b, "(%s)", strings.Join(c.Bases, ", "))
	}
	fmt.Fprintf(&b, ":  # %s:%d", path, c.Line)
	if c.Doc != "" {
		fmt.Fprintf(&b, "\n    %q", firstLine(c.Doc))
	}
	for _, a := range c.Attributes {
		fmt.Fprintf(&b, "\n    %s: %s", a.Name, a.Type)
	}
	for _, m := range c.Methods {
		b.WriteString("\n")
		b.WriteString(renderFunction("", m, "    "))
	}
	return b.String()
}

// WriteReport writes a plain-text rendering of r.
func WriteReport(w io.Writer, r *Report) error {
	var b strings.Builder
	for _, f := range r.Files {
		fmt.Fprintf(&b, "# %s (%s)\n", f.Path, f.Module)
		if f.Doc != "" {
			fmt.Fprintf(&b, "%q\n", firstLine(f.Doc))
		}
		for _, ir := range f.Imports {
			b.WriteString(renderImport(f.Path, ir))
			b.WriteString("\n")
		}
		for _, c := range f.Classes {
			b.WriteString(renderClass(f.Path, c))
			b.WriteString("\n")
		}
		for _, fn := range f.Functions {
			b.WriteString(renderFunction(f.Path, fn, ""))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(r.CallGraph) > 0 {
		b.WriteString("# call graph\n")
		for _, e := range r.CallGraph {
			b.WriteString(e.String())
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a plain-text rendering of s: one block per section
// followed by the graph highlights.
func WriteText(w io.Writer, s *Summary) error {
	var b strings.Builder
	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "## %s (%d/%d items, %.1f of %.1f units", sec.Name, sec.Items, sec.Total, sec.Used, sec.Quota)
		if sec.Truncated {
			b.WriteString(", truncated")
		}
		b.WriteString(")\n")
		b.WriteString(sec.Text)
		if !strings.HasSuffix(sec.Text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	writeList(&b, "entry points", s.EntryPoints)
	writeList(&b, "central components", s.Central)
	writeList(&b, "suggested focus", s.SuggestedFocus)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
