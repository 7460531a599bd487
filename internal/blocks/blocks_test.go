package blocks

import (
	"slices"
	"testing"

	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

func index(s *facts.Store) *facts.Index {
	s.Canonicalize()
	return facts.NewIndex(s)
}

func TestResolveNoCalls(t *testing.T) {
	ix := index(&facts.Store{
		Opcodes:    []facts.StmtOpcode{{"s1", "PUSH"}, {"s2", "STOP"}},
		StmtBlocks: []facts.StmtBlock{{"s1", "B0"}, {"s2", "B0"}},
		Next:       []facts.StmtNext{{"s1", "s2"}},
	})
	bd, diags := Resolve(ix)
	if diags.Len() != 0 {
		t.Fatalf("diags = %v", diags.Items())
	}
	if h, _ := bd.HeadOf("B0"); h != "s1" {
		t.Errorf("head(B0) = %q, want s1", h)
	}
	if tl, _ := bd.TailOf("B0"); tl != "s2" {
		t.Errorf("tail(B0) = %q, want s2", tl)
	}
}

func TestResolveChainsAcrossBlocks(t *testing.T) {
	// s1 s2 | s3 | s4 s5 s6, with a PHI p leading B2.
	ix := index(&facts.Store{
		StmtBlocks: []facts.StmtBlock{
			{"s1", "B0"}, {"s2", "B0"},
			{"s3", "B1"},
			{"p", "B2"}, {"s4", "B2"}, {"s5", "B2"}, {"s6", "B2"},
		},
		PHIs: []facts.Stmt{"p"},
		Next: []facts.StmtNext{{"s1", "s2"}, {"s2", "s3"}, {"s3", "s4"}, {"s4", "s5"}, {"s5", "s6"}},
	})
	bd, diags := Resolve(ix)
	if diags.Len() != 0 {
		t.Fatalf("diags = %v", diags.Items())
	}
	tests := []struct {
		block      facts.Block
		head, tail facts.Stmt
		n          int
	}{
		{"B0", "s1", "s2", 2},
		{"B1", "s3", "s3", 1},
		{"B2", "s4", "s6", 3},
	}
	for _, tt := range tests {
		h, ok1 := bd.HeadOf(tt.block)
		tl, ok2 := bd.TailOf(tt.block)
		if !ok1 || !ok2 || h != tt.head || tl != tt.tail {
			t.Errorf("%s: head=%q tail=%q, want %q %q", tt.block, h, tl, tt.head, tt.tail)
		}
		if (h == tl) != (tt.n == 1) {
			t.Errorf("%s: head == tail is %v with %d statements", tt.block, h == tl, tt.n)
		}
		if len(bd.Chain[tt.block]) != tt.n {
			t.Errorf("%s: chain = %v", tt.block, bd.Chain[tt.block])
		}
	}
	if !slices.Equal(bd.Blocks(), []facts.Block{"B0", "B1", "B2"}) {
		t.Errorf("blocks = %v", bd.Blocks())
	}
}

func TestResolvePHIOnlyAndEmpty(t *testing.T) {
	ix := index(&facts.Store{
		Opcodes:    []facts.StmtOpcode{{"p1", "PHI"}, {"p2", "PHI"}},
		StmtBlocks: []facts.StmtBlock{{"p1", "B0"}, {"p2", "B0"}},
		LocalEdges: []facts.BlockEdge{{"B0", "B1"}},
	})
	bd, diags := Resolve(ix)
	if diags.Len() != 0 {
		t.Fatalf("diags = %v", diags.Items())
	}
	for _, b := range []facts.Block{"B0", "B1"} {
		if _, ok := bd.HeadOf(b); ok {
			t.Errorf("%s has a head", b)
		}
		if _, ok := bd.TailOf(b); ok {
			t.Errorf("%s has a tail", b)
		}
	}
}

func TestResolveStructuralViolations(t *testing.T) {
	ix := index(&facts.Store{
		Opcodes: []facts.StmtOpcode{
			{"s1", "PUSH1"}, {"s1", "PUSH2"}, {"s2", "STOP"}, {"s3", "ADD"},
			{"x", "POP"},
		},
		StmtBlocks: []facts.StmtBlock{
			{"s1", "B0"}, {"s2", "B0"}, {"s3", "B0"},
			{"x", "B1"}, {"x", "B2"},
		},
		// s1 forks to s2 and s3.
		Next: []facts.StmtNext{{"s1", "s2"}, {"s1", "s3"}, {"orphan", "s1"}},
	})
	bd, diags := Resolve(ix)

	codes := make(map[diag.Code][]string)
	for _, d := range diags.Items() {
		codes[d.Code] = append(codes[d.Code], d.Entity)
	}
	if !slices.Equal(codes[diag.StmtNoBlock], []string{"orphan"}) {
		t.Errorf("no block = %v", codes[diag.StmtNoBlock])
	}
	if !slices.Equal(codes[diag.StmtMultiBlock], []string{"x"}) {
		t.Errorf("multi block = %v", codes[diag.StmtMultiBlock])
	}
	if !slices.Equal(codes[diag.StmtMultiOpcode], []string{"s1"}) {
		t.Errorf("multi opcode = %v", codes[diag.StmtMultiOpcode])
	}
	if !slices.Equal(codes[diag.BlockBrokenChain], []string{"B0"}) {
		t.Errorf("broken chain = %v", codes[diag.BlockBrokenChain])
	}
	if len(bd.Head) != 0 {
		t.Errorf("heads = %v, want none", bd.Head)
	}
	if !diags.Degraded() {
		t.Error("expected degraded")
	}
}

func TestResolveCycle(t *testing.T) {
	ix := index(&facts.Store{
		StmtBlocks: []facts.StmtBlock{{"a", "B0"}, {"b", "B0"}},
		Next:       []facts.StmtNext{{"a", "b"}, {"b", "a"}},
	})
	_, diags := Resolve(ix)
	if diags.Len() != 1 || diags.Items()[0].Code != diag.BlockBrokenChain {
		t.Fatalf("diags = %v", diags.Items())
	}
}

func TestResolveDeterministic(t *testing.T) {
	build := func() *Boundaries {
		bd, _ := Resolve(index(&facts.Store{
			StmtBlocks: []facts.StmtBlock{{"s3", "B1"}, {"s1", "B0"}, {"s2", "B0"}},
			Next:       []facts.StmtNext{{"s2", "s3"}, {"s1", "s2"}},
		}))
		return bd
	}
	a, b := build(), build()
	for _, blk := range a.Blocks() {
		if !slices.Equal(a.Chain[blk], b.Chain[blk]) {
			t.Errorf("%s: %v vs %v", blk, a.Chain[blk], b.Chain[blk])
		}
	}
}
