package graph

import (
	"fmt"

	"github.com/mvp-joe/codelens/internal/indexer/extraction"
)

// CallEdge records that Caller invokes Callee. Names are qualified within
// their modules. Edges are deduplicated per batch.
type CallEdge struct {
	Caller       string `json:"caller"`
	CallerModule string `json:"caller_module"`
	Callee       string `json:"callee"`
	CalleeModule string `json:"callee_module"`
}

func (e CallEdge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.CallerModule, e.Caller, e.CalleeModule, e.Callee)
}

func (e CallEdge) less(o CallEdge) bool {
	if e.CallerModule != o.CallerModule {
		return e.CallerModule < o.CallerModule
	}
	if e.Caller != o.Caller {
		return e.Caller < o.Caller
	}
	if e.CalleeModule != o.CalleeModule {
		return e.CalleeModule < o.CalleeModule
	}
	return e.Callee < o.Callee
}

// Enrichment stages reported in warnings.
const (
	StageCalls   = "calls"
	StageReturns = "returns"
	StageBases   = "bases"
)

// EnrichmentWarning records a best-effort resolution that failed for one
// symbol. The affected field keeps its default.
type EnrichmentWarning struct {
	Path   string
	Symbol string
	Stage  string
	Err    error
}

func (w EnrichmentWarning) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", w.Path, w.Symbol, w.Stage, w.Err)
}

func (w EnrichmentWarning) Unwrap() error { return w.Err }

// Result is the output of one enrichment pass.
type Result struct {
	// Tables are the enriched symbol tables in path order.
	Tables   []*extraction.SymbolTable
	Modules  *ModuleMap
	Edges    []CallEdge
	Graph    *DependencyGraph
	Warnings []EnrichmentWarning
}
