package render

import (
	"cmp"
	"slices"

	"tacflow/internal/analysis"
	"tacflow/internal/callgraph"
	"tacflow/internal/globalcfg"
)

// Stats summarizes a result for the HTML index.
type Stats struct {
	Statements int
	Blocks     int
	Functions  int
	Public     int
	Edges      int
	KindCounts map[globalcfg.EdgeKind]int
	Reachable  int
	TopCallers []NameCount // sorted desc
	TopCallees []NameCount // sorted desc
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes graph statistics from an analysis result.
func ComputeStats(r *analysis.Result) Stats {
	s := Stats{
		Statements: r.Stats.Statements,
		Blocks:     r.Stats.Blocks,
		Functions:  r.Stats.Functions,
		Public:     len(r.Public.Selectors),
		Edges:      len(r.Graph.Edges),
		KindCounts: make(map[globalcfg.EdgeKind]int),
		Reachable:  len(r.Graph.Reachable(r.Entry)),
	}
	for _, e := range r.Graph.Edges {
		s.KindCounts[e.Kind]++
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, c := range r.Store.CallEdges {
		if f, ok := r.Index.FuncOf(c.Caller); ok {
			callerCount[callgraph.FuncLabel(r, f)]++
		}
		calleeCount[callgraph.FuncLabel(r, c.Callee)]++
	}
	s.TopCallers = topNMap(callerCount, 15)
	s.TopCallees = topNMap(calleeCount, 15)
	return s
}

// topNMap returns the top n entries from a map, sorted descending by count
// then by name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	slices.SortFunc(entries, func(a, b NameCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Name, b.Name))
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
