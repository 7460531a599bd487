// Package globalcfg builds the inter-procedural control-flow graph, where
// private calls become edges into the callee's entry and private returns
// become edges back to every continuation of the callee's call sites.
package globalcfg

import (
	"slices"
	"strings"

	"tacflow/internal/facts"
)

// EdgeKind records which rules produced an edge. An edge may carry several.
type EdgeKind uint8

const (
	EdgeLocal  EdgeKind = 1 << iota // kept local jump or fallthrough
	EdgeCall                        // call site to callee entry
	EdgeReturn                      // callee return block to continuation
)

func (k EdgeKind) String() string {
	var parts []string
	if k&EdgeLocal != 0 {
		parts = append(parts, "local")
	}
	if k&EdgeCall != 0 {
		parts = append(parts, "call")
	}
	if k&EdgeReturn != 0 {
		parts = append(parts, "return")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Edge is one global control-flow edge.
type Edge struct {
	From facts.Block `json:"from"`
	To   facts.Block `json:"to"`
	Kind EdgeKind    `json:"kind"`
}

// Graph is the global CFG. Edges are unique per (From, To) and sorted.
type Graph struct {
	Edges []Edge

	succs map[facts.Block][]facts.Block
	preds map[facts.Block][]facts.Block
}

// Build derives the global CFG from local edges, call-graph edges and
// call/continuation triples in a single pass:
//
//  1. every local edge is kept unless it is the placeholder (caller, cont)
//     of some call/continuation triple;
//  2. every call-graph edge (caller, f) yields caller -> entry(f);
//  3. every triple (caller, f, cont) yields r -> cont for each block r of f
//     whose tail statement is RETURNPRIVATE.
func Build(ix *facts.Index) *Graph {
	s := ix.Store
	kinds := make(map[facts.BlockEdge]EdgeKind)

	placeholder := make(map[facts.BlockEdge]bool, len(s.CallReturns))
	for _, t := range s.CallReturns {
		placeholder[facts.BlockEdge{From: t.Caller, To: t.Cont}] = true
	}
	for _, e := range s.LocalEdges {
		if placeholder[e] {
			continue
		}
		kinds[e] |= EdgeLocal
	}

	for _, c := range s.CallEdges {
		for _, entry := range ix.FuncEntries[c.Callee] {
			kinds[facts.BlockEdge{From: c.Caller, To: entry}] |= EdgeCall
		}
	}

	returning := make(map[facts.Func][]facts.Block)
	for _, t := range s.CallReturns {
		rs, ok := returning[t.Callee]
		if !ok {
			for _, b := range ix.FuncBlocks[t.Callee] {
				if ReturnsPrivately(ix, b) {
					rs = append(rs, b)
				}
			}
			returning[t.Callee] = rs
		}
		for _, r := range rs {
			kinds[facts.BlockEdge{From: r, To: t.Cont}] |= EdgeReturn
		}
	}

	g := &Graph{
		Edges: make([]Edge, 0, len(kinds)),
		succs: make(map[facts.Block][]facts.Block),
		preds: make(map[facts.Block][]facts.Block),
	}
	for e, k := range kinds {
		g.Edges = append(g.Edges, Edge{From: e.From, To: e.To, Kind: k})
	}
	slices.SortFunc(g.Edges, func(a, b Edge) int {
		return facts.CompareBlockEdge(facts.BlockEdge{From: a.From, To: a.To}, facts.BlockEdge{From: b.From, To: b.To})
	})
	for _, e := range g.Edges {
		g.succs[e.From] = append(g.succs[e.From], e.To)
		g.preds[e.To] = append(g.preds[e.To], e.From)
	}
	for _, ps := range g.preds {
		slices.Sort(ps)
	}
	return g
}

// ReturnsPrivately reports whether the tail statement of b is RETURNPRIVATE.
// The chain is linked from the facts directly so the builder does not depend
// on the boundary resolver; a block whose statements do not form one chain
// has no tail and never returns.
func ReturnsPrivately(ix *facts.Index, b facts.Block) bool {
	chain, ok := ix.BlockChain(b)
	if !ok || len(chain) == 0 {
		return false
	}
	op, ok := ix.OpcodeOf(chain[len(chain)-1])
	return ok && op == facts.OpReturnPrivate
}

// Succs returns the global successors of b, sorted.
func (g *Graph) Succs(b facts.Block) []facts.Block { return g.succs[b] }

// Preds returns the global predecessors of b, sorted.
func (g *Graph) Preds(b facts.Block) []facts.Block { return g.preds[b] }

// Has reports whether the edge from -> to exists.
func (g *Graph) Has(from, to facts.Block) bool {
	return slices.Contains(g.succs[from], to)
}

// Pairs returns the edge set without kinds.
func (g *Graph) Pairs() []facts.BlockEdge {
	out := make([]facts.BlockEdge, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = facts.BlockEdge{From: e.From, To: e.To}
	}
	return out
}

// Reachable performs BFS from the given roots over global edges and returns
// the set of reached blocks, roots included.
func (g *Graph) Reachable(roots ...facts.Block) map[facts.Block]bool {
	reached := make(map[facts.Block]bool)
	queue := make([]facts.Block, 0, len(roots))
	for _, r := range roots {
		if !reached[r] {
			reached[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, n := range g.succs[b] {
			if !reached[n] {
				reached[n] = true
				queue = append(queue, n)
			}
		}
	}
	return reached
}
