// Package callgraph converts analysis results into lattice graphs for
// rendering.
package callgraph

import (
	"slices"

	"github.com/zboralski/lattice"

	"tacflow/internal/analysis"
	"tacflow/internal/facts"
)

// FuncLabel is the display name of f: the high-level name when the lifter
// recovered one, suffixed with the function id so labels stay unique.
func FuncLabel(r *analysis.Result, f facts.Func) string {
	if n, ok := r.Public.Names[f]; ok && n != "" && n != string(f) {
		return n + "_" + string(f)
	}
	return string(f)
}

// BuildCallGraph constructs a function-level lattice.Graph. Every function
// becomes a node; every private call edge becomes an edge from the function
// owning the call block to the callee. Call blocks with no unique owner are
// skipped.
func BuildCallGraph(r *analysis.Result) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range functions(r) {
		g.Nodes = append(g.Nodes, FuncLabel(r, f))
	}
	for _, c := range r.Store.CallEdges {
		caller, ok := r.Index.FuncOf(c.Caller)
		if !ok {
			continue
		}
		g.Edges = append(g.Edges, lattice.Edge{
			Caller: FuncLabel(r, caller),
			Callee: FuncLabel(r, c.Callee),
		})
	}
	g.Dedup()
	return g
}

// functions lists every function that owns blocks or is called, sorted.
func functions(r *analysis.Result) []facts.Func {
	seen := make(map[facts.Func]bool)
	var out []facts.Func
	add := func(f facts.Func) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range r.Store.Funcs {
		add(f)
	}
	for f := range r.Index.FuncBlocks {
		add(f)
	}
	for _, c := range r.Store.CallEdges {
		add(c.Callee)
	}
	slices.Sort(out)
	return out
}
