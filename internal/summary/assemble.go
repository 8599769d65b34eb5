package summary

import (
	"sort"
	"strings"

	"github.com/mvp-joe/codelens/internal/budget"
	"github.com/mvp-joe/codelens/internal/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
	"github.com/mvp-joe/codelens/internal/ranking"
)

// Section names, in output order.
const (
	SectionImports   = "imports"
	SectionClasses   = "classes"
	SectionFunctions = "functions"
	SectionCallGraph = "call_graph"
)

var sectionOrder = []string{SectionImports, SectionClasses, SectionFunctions, SectionCallGraph}

const (
	highlightCount = 3
	suggestCount   = 5
)

// Options control a budgeted summary.
type Options struct {
	// Budget is the total size in estimator units.
	Budget    float64
	Focus     []string
	Weights   ranking.Weights
	Estimator budget.Estimator
}

// Section is the budgeted output of one summary section.
type Section struct {
	Name      string  `json:"name"`
	Quota     float64 `json:"quota"`
	Used      float64 `json:"used"`
	Items     int     `json:"items"`
	Total     int     `json:"total"`
	Truncated bool    `json:"truncated,omitempty"`
	Text      string  `json:"text"`
}

// Summary is a budget-constrained view of a batch.
type Summary struct {
	Budget         float64          `json:"budget"`
	Sections       []Section        `json:"sections"`
	Report         *Report          `json:"report"`
	Scores         []ranking.Scored `json:"scores"`
	EntryPoints    []string         `json:"entry_points,omitempty"`
	Central        []string         `json:"central,omitempty"`
	SuggestedFocus []string         `json:"suggested_focus,omitempty"`
}

// part is one renderable unit of a section.
type part struct {
	order int
	text  string
	table *extraction.SymbolTable
	add   func(fr *FileReport)
	edge  *graph.CallEdge
}

// Assemble ranks the batch and fills each section with its best items
// within the section's quota. Sections without content receive no quota.
func Assemble(res *graph.Result, opts Options) (*Summary, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	est := opts.Estimator
	ranked := ranking.Rank(res.Tables, res.Edges, opts.Focus, opts.Weights)
	byPath := make(map[string]*extraction.SymbolTable, len(res.Tables))
	for _, t := range res.Tables {
		byPath[t.Path] = t
	}

	items := map[string][]budget.Item[part]{
		SectionImports:   importItems(res.Tables, est),
		SectionClasses:   symbolItems(ranked, byPath, extraction.KindClass, est),
		SectionFunctions: symbolItems(ranked, byPath, extraction.KindFunction, est),
		SectionCallGraph: edgeItems(res.Edges, ranked, est),
	}

	var sections []budget.Section
	for _, name := range sectionOrder {
		if len(items[name]) > 0 {
			sections = append(sections, budget.Section{Name: name, Raw: budget.Used(items[name])})
		}
	}
	quotas, err := budget.Allocate(opts.Budget, sections)
	if err != nil {
		return nil, err
	}

	s := &Summary{Budget: opts.Budget, Scores: ranked}
	files := newFileIndex()
	var edges []graph.CallEdge

	for _, q := range quotas {
		all := items[q.Name]
		chosen := budget.Select(all, q.Units)
		sec := Section{Name: q.Name, Quota: q.Units, Items: len(chosen), Total: len(all)}

		if len(chosen) == 0 {
			top := topItem(all)
			sec.Text = budget.Truncate(top.Value.text, q.Units, est)
			sec.Used = est.Units(sec.Text)
			sec.Truncated = true
			s.Sections = append(s.Sections, sec)
			continue
		}

		var text strings.Builder
		for _, it := range chosen {
			text.WriteString(it.Value.text)
			text.WriteString("\n")
		}
		sec.Text = text.String()
		sec.Used = budget.Used(chosen)
		s.Sections = append(s.Sections, sec)

		sort.SliceStable(chosen, func(i, j int) bool { return chosen[i].Value.order < chosen[j].Value.order })
		for _, it := range chosen {
			if it.Value.edge != nil {
				edges = append(edges, *it.Value.edge)
				continue
			}
			it.Value.add(files.get(it.Value.table))
		}
	}

	s.Report = files.report(edges)
	if res.Graph != nil {
		s.EntryPoints = res.Graph.EntryPoints(highlightCount)
		s.Central = res.Graph.Central(highlightCount)
	}
	s.SuggestedFocus = suggestFocus(s.EntryPoints, ranked)
	return s, nil
}

func topItem(items []budget.Item[part]) budget.Item[part] {
	best := items[0]
	for _, it := range items[1:] {
		if it.Score > best.Score {
			best = it
		}
	}
	return best
}

func importItems(tables []*extraction.SymbolTable, est budget.Estimator) []budget.Item[part] {
	var out []budget.Item[part]
	for _, t := range tables {
		for _, g := range t.Imports {
			ir := importReport(g)
			text := renderImport(t.Path, ir)
			out = append(out, budget.Item[part]{
				Size: est.Units(text + "\n"),
				Value: part{
					order: len(out),
					text:  text,
					table: t,
					add:   func(fr *FileReport) { fr.Imports = append(fr.Imports, ir) },
				},
			})
		}
	}
	return out
}

// symbolItems builds items for ranked classes or free functions. Items
// keep their rank order; order records their position by path and line.
func symbolItems(ranked []ranking.Scored, byPath map[string]*extraction.SymbolTable, kind extraction.Kind, est budget.Estimator) []budget.Item[part] {
	var matching []ranking.Scored
	for _, sc := range ranked {
		if sc.Kind == kind {
			matching = append(matching, sc)
		}
	}
	byPosition := append([]ranking.Scored(nil), matching...)
	sort.SliceStable(byPosition, func(i, j int) bool {
		if byPosition[i].Path != byPosition[j].Path {
			return byPosition[i].Path < byPosition[j].Path
		}
		return byPosition[i].Line < byPosition[j].Line
	})
	order := make(map[string]int, len(byPosition))
	for i, sc := range byPosition {
		order[sc.Path+"\x00"+sc.Name] = i
	}

	out := make([]budget.Item[part], 0, len(matching))
	for _, sc := range matching {
		p := part{order: order[sc.Path+"\x00"+sc.Name], table: byPath[sc.Path]}
		if kind == extraction.KindClass {
			cr := classReport(sc.Class)
			p.text = renderClass(sc.Path, cr)
			p.add = func(fr *FileReport) { fr.Classes = append(fr.Classes, cr) }
		} else {
			fr := functionReport(sc.Symbol)
			p.text = renderFunction(sc.Path, fr, "")
			p.add = func(f *FileReport) { f.Functions = append(f.Functions, fr) }
		}
		out = append(out, budget.Item[part]{
			Value:   p,
			Size:    est.Units(p.text + "\n"),
			Score:   sc.Score,
			Focused: sc.Focus,
		})
	}
	return out
}

// edgeItems scores each edge by its caller's importance.
func edgeItems(edges []graph.CallEdge, ranked []ranking.Scored, est budget.Estimator) []budget.Item[part] {
	scores := make(map[string]float64, len(ranked))
	for _, sc := range ranked {
		scores[graph.NodeID(sc.Module, sc.Name)] = sc.Score
	}
	out := make([]budget.Item[part], 0, len(edges))
	for i := range edges {
		e := edges[i]
		text := e.String()
		out = append(out, budget.Item[part]{
			Value: part{order: i, text: text, edge: &e},
			Size:  est.Units(text + "\n"),
			Score: scores[graph.NodeID(e.CallerModule, e.Caller)],
		})
	}
	return out
}

// suggestFocus proposes focus names: entry points first, then the best
// classes, then the best free functions.
func suggestFocus(entryPoints []string, ranked []ranking.Scored) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if len(out) < suggestCount && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, id := range entryPoints {
		add(id[strings.LastIndexByte(id, ':')+1:])
	}
	for _, name := range ranking.Top(ranked, extraction.KindClass, suggestCount) {
		add(name)
	}
	for _, name := range ranking.Top(ranked, extraction.KindFunction, suggestCount) {
		add(name)
	}
	return out
}
