package facts

import (
	"cmp"
	"slices"
)

// Store is the fact set of one contract. It is filled by a loader, then
// frozen: nothing in this module mutates a Store after Canonicalize.
type Store struct {
	Name string `msgpack:"name"`

	Opcodes    []StmtOpcode `msgpack:"ops"`
	StmtBlocks []StmtBlock  `msgpack:"stmt_block"`
	Next       []StmtNext   `msgpack:"next"`
	PHIs       []Stmt       `msgpack:"phi"`
	Uses       []Operand    `msgpack:"uses"`
	Defs       []Operand    `msgpack:"defs"`
	Values     []VarValue   `msgpack:"values"`

	LocalEdges  []BlockEdge  `msgpack:"local_edges"`
	Fallthrough []BlockEdge  `msgpack:"fallthrough"`
	CallEdges   []CallEdge   `msgpack:"call_edges"`
	CallReturns []CallReturn `msgpack:"call_returns"`

	Funcs      []Func         `msgpack:"funcs"`
	InFunction []FuncBlock    `msgpack:"in_function"`
	Entries    []Block        `msgpack:"entries"`
	Selectors  []FuncSelector `msgpack:"selectors"`
	Names      []FuncName     `msgpack:"names"`

	FormalArgs       []FuncArg  `msgpack:"formal_args"`
	ActualReturnArgs []BlockArg `msgpack:"actual_return_args"`

	Gas    []BlockGas   `msgpack:"gas"`
	Chunks []BlockChunk `msgpack:"chunks"`
	Extra  []Relation   `msgpack:"extra"`
}

// Stats is a row count summary used for logging and size guards.
type Stats struct {
	Statements int `json:"statements"`
	Blocks     int `json:"blocks"`
	Functions  int `json:"functions"`
	LocalEdges int `json:"local_edges"`
	CallEdges  int `json:"call_edges"`
}

// Stats counts distinct statements, blocks and functions.
func (s *Store) Stats() Stats {
	stmts := make(map[Stmt]struct{})
	for _, r := range s.Opcodes {
		stmts[r.Stmt] = struct{}{}
	}
	for _, r := range s.StmtBlocks {
		stmts[r.Stmt] = struct{}{}
	}
	blocks := make(map[Block]struct{})
	funcs := make(map[Func]struct{})
	for _, r := range s.InFunction {
		blocks[r.Block] = struct{}{}
		funcs[r.Func] = struct{}{}
	}
	for _, r := range s.StmtBlocks {
		blocks[r.Block] = struct{}{}
	}
	for _, f := range s.Funcs {
		funcs[f] = struct{}{}
	}
	return Stats{
		Statements: len(stmts),
		Blocks:     len(blocks),
		Functions:  len(funcs),
		LocalEdges: len(s.LocalEdges),
		CallEdges:  len(s.CallEdges),
	}
}

// Canonicalize sorts every relation and drops exact duplicate rows, so that
// loaders with different row orders yield identical stores.
func (s *Store) Canonicalize() {
	s.Opcodes = sortUniq(s.Opcodes, func(a, b StmtOpcode) int {
		return cmp.Or(cmp.Compare(a.Stmt, b.Stmt), cmp.Compare(a.Op, b.Op))
	})
	s.StmtBlocks = sortUniq(s.StmtBlocks, func(a, b StmtBlock) int {
		return cmp.Or(cmp.Compare(a.Stmt, b.Stmt), cmp.Compare(a.Block, b.Block))
	})
	s.Next = sortUniq(s.Next, func(a, b StmtNext) int {
		return cmp.Or(cmp.Compare(a.Stmt, b.Stmt), cmp.Compare(a.Next, b.Next))
	})
	s.PHIs = sortUniq(s.PHIs, cmp.Compare[Stmt])
	s.Uses = sortUniq(s.Uses, compareOperand)
	s.Defs = sortUniq(s.Defs, compareOperand)
	s.Values = sortUniq(s.Values, func(a, b VarValue) int {
		return cmp.Or(cmp.Compare(a.Var, b.Var), cmp.Compare(a.Value, b.Value))
	})
	s.LocalEdges = sortUniq(s.LocalEdges, CompareBlockEdge)
	s.Fallthrough = sortUniq(s.Fallthrough, CompareBlockEdge)
	s.CallEdges = sortUniq(s.CallEdges, func(a, b CallEdge) int {
		return cmp.Or(cmp.Compare(a.Caller, b.Caller), cmp.Compare(a.Callee, b.Callee))
	})
	s.CallReturns = sortUniq(s.CallReturns, func(a, b CallReturn) int {
		return cmp.Or(cmp.Compare(a.Caller, b.Caller), cmp.Compare(a.Callee, b.Callee), cmp.Compare(a.Cont, b.Cont))
	})
	s.Funcs = sortUniq(s.Funcs, cmp.Compare[Func])
	s.InFunction = sortUniq(s.InFunction, func(a, b FuncBlock) int {
		return cmp.Or(cmp.Compare(a.Block, b.Block), cmp.Compare(a.Func, b.Func))
	})
	s.Entries = sortUniq(s.Entries, cmp.Compare[Block])
	s.Selectors = sortUniq(s.Selectors, func(a, b FuncSelector) int {
		return cmp.Or(cmp.Compare(a.Func, b.Func), cmp.Compare(a.Selector, b.Selector))
	})
	s.Names = sortUniq(s.Names, func(a, b FuncName) int {
		return cmp.Or(cmp.Compare(a.Func, b.Func), cmp.Compare(a.Name, b.Name))
	})
	s.FormalArgs = sortUniq(s.FormalArgs, CompareFuncArg)
	s.ActualReturnArgs = sortUniq(s.ActualReturnArgs, CompareBlockArg)
	s.Gas = sortUniq(s.Gas, func(a, b BlockGas) int {
		return cmp.Or(cmp.Compare(a.Block, b.Block), cmp.Compare(a.Gas, b.Gas))
	})
	s.Chunks = sortUniq(s.Chunks, func(a, b BlockChunk) int {
		return cmp.Or(cmp.Compare(a.Block, b.Block), cmp.Compare(a.Chunk, b.Chunk))
	})
	slices.SortStableFunc(s.Extra, func(a, b Relation) int { return cmp.Compare(a.Name, b.Name) })
}

func compareOperand(a, b Operand) int {
	return cmp.Or(cmp.Compare(a.Stmt, b.Stmt), cmp.Compare(a.Pos, b.Pos), cmp.Compare(a.Var, b.Var))
}

// CompareBlockEdge orders edges by source then target.
func CompareBlockEdge(a, b BlockEdge) int {
	return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
}

// CompareFuncArg orders bindings by function, position, variable.
func CompareFuncArg(a, b FuncArg) int {
	return cmp.Or(cmp.Compare(a.Func, b.Func), cmp.Compare(a.Pos, b.Pos), cmp.Compare(a.Var, b.Var))
}

// CompareBlockArg orders bindings by block, position, variable.
func CompareBlockArg(a, b BlockArg) int {
	return cmp.Or(cmp.Compare(a.Block, b.Block), cmp.Compare(a.Pos, b.Pos), cmp.Compare(a.Var, b.Var))
}

func sortUniq[T comparable](rows []T, compare func(a, b T) int) []T {
	slices.SortFunc(rows, compare)
	return slices.Compact(rows)
}
