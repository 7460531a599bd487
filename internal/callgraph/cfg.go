package callgraph

import (
	"slices"

	"github.com/zboralski/lattice"

	"tacflow/internal/analysis"
	"tacflow/internal/facts"
)

// BuildCFG constructs a lattice.CFGGraph with one FuncCFG per function.
// Functions without blocks are omitted.
func BuildCFG(r *analysis.Result) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range functions(r) {
		if lcfg := BuildFuncCFG(r, f); len(lcfg.Blocks) > 0 {
			cg.Funcs = append(cg.Funcs, lcfg)
		}
	}
	return cg
}

// BuildFuncCFG maps the blocks of f to a lattice.FuncCFG. The entry block
// comes first, the rest follow in id order. Successors are the local edges
// that stay inside f, so a private call falls through to its continuation
// as it does in the lifted code. On a two-way branch the fallthrough edge
// is labelled F and the jump target T. Private calls become call sites at
// the tail of the calling block.
func BuildFuncCFG(r *analysis.Result, f facts.Func) *lattice.FuncCFG {
	ix := r.Index
	blocks := orderBlocks(ix.FuncBlocks[f], ix.FuncEntries[f])

	ids := make(map[facts.Block]int, len(blocks))
	for i, b := range blocks {
		ids[b] = i
	}
	falls := make(map[facts.BlockEdge]bool, len(r.Store.Fallthrough))
	for _, e := range r.Store.Fallthrough {
		falls[e] = true
	}
	callees := make(map[facts.Block][]facts.Func)
	for _, c := range r.Store.CallEdges {
		callees[c.Caller] = append(callees[c.Caller], c.Callee)
	}

	lcfg := &lattice.FuncCFG{Name: FuncLabel(r, f)}
	offset := 0
	for i, b := range blocks {
		n := len(r.Boundaries.Chain[b])
		if n == 0 {
			n = 1
		}
		lb := &lattice.BasicBlock{
			ID:    i,
			Start: offset,
			End:   offset + n,
		}
		offset += n

		var succs []facts.Block
		for _, s := range ix.LocalSuccs[b] {
			if _, ok := ids[s]; ok {
				succs = append(succs, s)
			}
		}
		for _, s := range succs {
			cond := ""
			if len(succs) == 2 {
				cond = "T"
				if falls[facts.BlockEdge{From: b, To: s}] {
					cond = "F"
				}
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: ids[s], Cond: cond})
		}
		lb.Term = len(lb.Succs) == 0 || r.IsExit(b) || r.IsValidTerminal(b)

		cs := callees[b]
		slices.Sort(cs)
		for _, callee := range slices.Compact(cs) {
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: lb.End - 1,
				Callee: FuncLabel(r, callee),
			})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// orderBlocks puts the entry blocks first, then the rest in id order.
func orderBlocks(blocks, entries []facts.Block) []facts.Block {
	out := make([]facts.Block, 0, len(blocks))
	for _, e := range entries {
		if slices.Contains(blocks, e) {
			out = append(out, e)
		}
	}
	for _, b := range blocks {
		if !slices.Contains(entries, b) {
			out = append(out, b)
		}
	}
	return out
}
