package facts

import (
	"cmp"
	"slices"
)

// Index holds read-only lookups over a Store. It is built once per run and
// shared by every component; none of them mutate it.
type Index struct {
	Store *Store

	Stmts      []Stmt // every statement mentioned by any statement-level relation
	Blocks     []Block
	Opcodes    map[Stmt][]Opcode
	StmtBlocks map[Stmt][]Block
	BlockStmts map[Block][]Stmt
	PHI        map[Stmt]bool
	Next       map[Stmt][]Stmt
	Uses       map[Stmt][]Operand
	Defs       map[Stmt][]Operand

	BlockFuncs  map[Block][]Func
	FuncBlocks  map[Func][]Block
	FuncEntries map[Func][]Block

	LocalSuccs map[Block][]Block
	LocalPreds map[Block][]Block
}

// NewIndex builds the lookups for s. Slices inside the maps are sorted.
func NewIndex(s *Store) *Index {
	ix := &Index{
		Store:       s,
		Opcodes:     make(map[Stmt][]Opcode),
		StmtBlocks:  make(map[Stmt][]Block),
		BlockStmts:  make(map[Block][]Stmt),
		PHI:         make(map[Stmt]bool),
		Next:        make(map[Stmt][]Stmt),
		Uses:        make(map[Stmt][]Operand),
		Defs:        make(map[Stmt][]Operand),
		BlockFuncs:  make(map[Block][]Func),
		FuncBlocks:  make(map[Func][]Block),
		FuncEntries: make(map[Func][]Block),
		LocalSuccs:  make(map[Block][]Block),
		LocalPreds:  make(map[Block][]Block),
	}

	stmts := make(map[Stmt]struct{})
	blocks := make(map[Block]struct{})
	addBlock := func(b Block) { blocks[b] = struct{}{} }

	for _, r := range s.Opcodes {
		stmts[r.Stmt] = struct{}{}
		ix.Opcodes[r.Stmt] = append(ix.Opcodes[r.Stmt], r.Op)
		if r.Op == OpPHI {
			ix.PHI[r.Stmt] = true
		}
	}
	for _, p := range s.PHIs {
		stmts[p] = struct{}{}
		ix.PHI[p] = true
	}
	for _, r := range s.StmtBlocks {
		stmts[r.Stmt] = struct{}{}
		addBlock(r.Block)
		ix.StmtBlocks[r.Stmt] = append(ix.StmtBlocks[r.Stmt], r.Block)
		ix.BlockStmts[r.Block] = append(ix.BlockStmts[r.Block], r.Stmt)
	}
	for _, r := range s.Next {
		stmts[r.Stmt] = struct{}{}
		stmts[r.Next] = struct{}{}
		ix.Next[r.Stmt] = append(ix.Next[r.Stmt], r.Next)
	}
	for _, r := range s.Uses {
		stmts[r.Stmt] = struct{}{}
		ix.Uses[r.Stmt] = append(ix.Uses[r.Stmt], r)
	}
	for _, r := range s.Defs {
		stmts[r.Stmt] = struct{}{}
		ix.Defs[r.Stmt] = append(ix.Defs[r.Stmt], r)
	}

	for _, r := range s.InFunction {
		addBlock(r.Block)
		ix.BlockFuncs[r.Block] = append(ix.BlockFuncs[r.Block], r.Func)
		ix.FuncBlocks[r.Func] = append(ix.FuncBlocks[r.Func], r.Block)
	}
	entry := make(map[Block]bool, len(s.Entries))
	for _, b := range s.Entries {
		addBlock(b)
		entry[b] = true
	}
	for _, r := range s.InFunction {
		if entry[r.Block] {
			ix.FuncEntries[r.Func] = append(ix.FuncEntries[r.Func], r.Block)
		}
	}
	for _, e := range s.LocalEdges {
		addBlock(e.From)
		addBlock(e.To)
		ix.LocalSuccs[e.From] = append(ix.LocalSuccs[e.From], e.To)
		ix.LocalPreds[e.To] = append(ix.LocalPreds[e.To], e.From)
	}
	for _, e := range s.Fallthrough {
		addBlock(e.From)
		addBlock(e.To)
	}
	for _, e := range s.CallEdges {
		addBlock(e.Caller)
	}
	for _, r := range s.CallReturns {
		addBlock(r.Caller)
		addBlock(r.Cont)
	}
	for _, r := range s.ActualReturnArgs {
		addBlock(r.Block)
	}

	ix.Stmts = sortedKeys(stmts)
	ix.Blocks = sortedKeys(blocks)
	sortValues(ix.Opcodes)
	sortValues(ix.StmtBlocks)
	sortValues(ix.BlockStmts)
	sortValues(ix.Next)
	sortValues(ix.BlockFuncs)
	sortValues(ix.FuncBlocks)
	sortValues(ix.FuncEntries)
	sortValues(ix.LocalSuccs)
	sortValues(ix.LocalPreds)
	for _, ops := range ix.Uses {
		slices.SortFunc(ops, compareOperand)
	}
	for _, ops := range ix.Defs {
		slices.SortFunc(ops, compareOperand)
	}
	return ix
}

// BlockOf returns the block of s when it has exactly one.
func (ix *Index) BlockOf(s Stmt) (Block, bool) {
	bs := ix.StmtBlocks[s]
	if len(bs) != 1 {
		return "", false
	}
	return bs[0], true
}

// OpcodeOf returns the opcode of s when it has exactly one.
func (ix *Index) OpcodeOf(s Stmt) (Opcode, bool) {
	ops := ix.Opcodes[s]
	if len(ops) != 1 {
		return "", false
	}
	return ops[0], true
}

// FuncOf returns the function of b when it has exactly one.
func (ix *Index) FuncOf(b Block) (Func, bool) {
	fs := ix.BlockFuncs[b]
	if len(fs) != 1 {
		return "", false
	}
	return fs[0], true
}

// IsKnownBlock reports whether b is mentioned by any block-level relation.
func (ix *Index) IsKnownBlock(b Block) bool {
	_, ok := slices.BinarySearch(ix.Blocks, b)
	return ok
}

func sortValues[K comparable, V cmp.Ordered](m map[K][]V) {
	for k, vs := range m {
		slices.Sort(vs)
		m[k] = slices.Compact(vs)
	}
}

func sortedKeys[K cmp.Ordered](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
