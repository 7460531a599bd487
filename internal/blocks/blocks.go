// Package blocks resolves the first and last statement of every basic block
// from the global statement order.
package blocks

import (
	"slices"

	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

// Boundaries maps each block with at least one ordered statement to its
// head and tail. Blocks that are empty, PHI-only, or whose statements do not
// form one chain have no entry.
type Boundaries struct {
	Head  map[facts.Block]facts.Stmt
	Tail  map[facts.Block]facts.Stmt
	Chain map[facts.Block][]facts.Stmt // head to tail, PHIs excluded
}

// HeadOf returns the first non-PHI statement of b.
func (bd *Boundaries) HeadOf(b facts.Block) (facts.Stmt, bool) {
	s, ok := bd.Head[b]
	return s, ok
}

// TailOf returns the last non-PHI statement of b.
func (bd *Boundaries) TailOf(b facts.Block) (facts.Stmt, bool) {
	s, ok := bd.Tail[b]
	return s, ok
}

// Blocks returns the blocks that have boundaries, sorted.
func (bd *Boundaries) Blocks() []facts.Block {
	out := make([]facts.Block, 0, len(bd.Head))
	for b := range bd.Head {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// Resolve computes block boundaries. The global order is restricted to pairs
// of statements sharing a block; within a block the remaining non-PHI
// statements must form a single chain.
func Resolve(ix *facts.Index) (*Boundaries, *diag.Diags) {
	diags := &diag.Diags{}
	bd := &Boundaries{
		Head:  make(map[facts.Block]facts.Stmt),
		Tail:  make(map[facts.Block]facts.Stmt),
		Chain: make(map[facts.Block][]facts.Stmt),
	}

	for _, s := range ix.Stmts {
		switch bs := ix.StmtBlocks[s]; len(bs) {
		case 0:
			diags.Add(diag.StmtNoBlock, string(s), nil, "statement has no block")
		case 1:
		default:
			diags.Add(diag.StmtMultiBlock, string(s), blockStrings(bs), "statement belongs to more than one block")
		}
		if ops := ix.Opcodes[s]; len(ops) > 1 {
			tuple := make([]string, len(ops))
			for i, op := range ops {
				tuple[i] = string(op)
			}
			diags.Add(diag.StmtMultiOpcode, string(s), tuple, "statement has more than one opcode")
		}
	}

	blocks := make([]facts.Block, 0, len(ix.BlockStmts))
	for b := range ix.BlockStmts {
		blocks = append(blocks, b)
	}
	slices.Sort(blocks)

	for _, b := range blocks {
		chain, ok := ix.BlockChain(b)
		if !ok {
			diags.Add(diag.BlockBrokenChain, string(b), stmtStrings(ix.ChainMembers(b)),
				"non-PHI statements do not form a single chain")
			continue
		}
		if len(chain) == 0 {
			continue
		}
		bd.Head[b] = chain[0]
		bd.Tail[b] = chain[len(chain)-1]
		bd.Chain[b] = chain
	}
	return bd, diags
}

func blockStrings(bs []facts.Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

func stmtStrings(ss []facts.Stmt) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
