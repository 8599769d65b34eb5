package graph

import (
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

// Node is one callable vertex of the dependency graph.
type Node struct {
	ID        string          `json:"id"`
	Module    string          `json:"module"`
	Name      string          `json:"name"`
	Kind      extraction.Kind `json:"kind"`
	Path      string          `json:"path"`
	StartLine int             `json:"start_line"`
}

// NodeID builds the vertex id for a qualified name in a module.
func NodeID(module, qualified string) string {
	return module + ":" + qualified
}

// DependencyGraph is the directed call graph of one batch.
type DependencyGraph struct {
	g       graph.Graph[string, Node]
	ids     []string
	callees map[string][]string
	callers map[string][]string
}

// NewDependencyGraph adds every free function and method of tables as a
// vertex and every edge between known vertices.
func NewDependencyGraph(tables []*extraction.SymbolTable, modules *ModuleMap, edges []CallEdge) *DependencyGraph {
	d := &DependencyGraph{
		g:       graph.New(func(n Node) string { return n.ID }, graph.Directed()),
		callees: make(map[string][]string),
		callers: make(map[string][]string),
	}

	for _, t := range tables {
		module := modules.Module(t.Path)
		for _, sym := range t.Callables() {
			node := Node{
				ID:        NodeID(module, sym.QualifiedName),
				Module:    module,
				Name:      sym.QualifiedName,
				Kind:      sym.Kind,
				Path:      t.Path,
				StartLine: sym.StartLine,
			}
			// Rebound names share an id; the first vertex stays.
			if err := d.g.AddVertex(node); err == nil {
				d.ids = append(d.ids, node.ID)
			}
		}
	}
	sort.Strings(d.ids)

	for _, e := range edges {
		from, to := NodeID(e.CallerModule, e.Caller), NodeID(e.CalleeModule, e.Callee)
		if err := d.g.AddEdge(from, to); err != nil {
			continue
		}
		d.callees[from] = append(d.callees[from], to)
		d.callers[to] = append(d.callers[to], from)
	}
	for _, m := range []map[string][]string{d.callees, d.callers} {
		for k := range m {
			sort.Strings(m[k])
		}
	}
	return d
}

// Node returns the vertex for id.
func (d *DependencyGraph) Node(id string) (Node, bool) {
	n, err := d.g.Vertex(id)
	return n, err == nil
}

// Nodes returns all vertex ids, sorted.
func (d *DependencyGraph) Nodes() []string {
	return append([]string(nil), d.ids...)
}

// EdgeCount returns the number of edges in the graph.
func (d *DependencyGraph) EdgeCount() int {
	n, err := d.g.Size()
	if err != nil {
		return 0
	}
	return n
}

// Callers returns ids of the direct callers of id, sorted.
func (d *DependencyGraph) Callers(id string) []string {
	return append([]string(nil), d.callers[id]...)
}

// Callees returns ids of the direct callees of id, sorted.
func (d *DependencyGraph) Callees(id string) []string {
	return append([]string(nil), d.callees[id]...)
}

// Related returns every vertex within distance hops of id in either
// direction, excluding id itself, sorted.
func (d *DependencyGraph) Related(id string, distance int) []string {
	if _, ok := d.Node(id); !ok || distance <= 0 {
		return nil
	}
	visited := map[string]int{id: 0}
	frontier := []string{id}
	for depth := 1; depth <= distance && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, neighbors := range [][]string{d.callees[cur], d.callers[cur]} {
				for _, nb := range neighbors {
					if _, seen := visited[nb]; seen {
						continue
					}
					visited[nb] = depth
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited)-1)
	for v := range visited {
		if v != id {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Central returns up to n vertices with the most incident edges. Vertices
// without edges are never central. Ties sort by id.
func (d *DependencyGraph) Central(n int) []string {
	type scored struct {
		id     string
		degree int
	}
	var all []scored
	for _, id := range d.ids {
		if deg := len(d.callers[id]) + len(d.callees[id]); deg > 0 {
			all = append(all, scored{id, deg})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].degree > all[j].degree })
	return topIDs(len(all), n, func(i int) string { return all[i].id })
}

// EntryPoints returns up to n likely entry points: vertices called at most
// once that call at least three others. Functions named main or __init__
// come first, then by fan-out.
func (d *DependencyGraph) EntryPoints(n int) []string {
	var candidates []string
	for _, id := range d.ids {
		if len(d.callers[id]) <= 1 && len(d.callees[id]) >= 3 {
			candidates = append(candidates, id)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := isEntryName(candidates[i]), isEntryName(candidates[j])
		if pi != pj {
			return pi
		}
		return len(d.callees[candidates[i]]) > len(d.callees[candidates[j]])
	})
	return topIDs(len(candidates), n, func(i int) string { return candidates[i] })
}

func isEntryName(id string) bool {
	name := id[strings.LastIndex(id, ":")+1:]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name == "main" || name == "__init__"
}

func topIDs(total, n int, at func(int) string) []string {
	if n <= 0 || n > total {
		n = total
	}
	out := make([]string, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}
