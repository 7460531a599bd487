package facts

import (
	"slices"
	"testing"
)

func TestNewIndex(t *testing.T) {
	s := &Store{
		Opcodes:    []StmtOpcode{{"s1", "PUSH1"}, {"p", "PHI"}, {"s2", "JUMP"}, {"s2", "STOP"}},
		StmtBlocks: []StmtBlock{{"s1", "B0"}, {"p", "B0"}, {"s2", "B0"}, {"s2", "B1"}},
		Next:       []StmtNext{{"s1", "s2"}},
		LocalEdges: []BlockEdge{{"B0", "B1"}, {"B0", "B2"}},
		InFunction: []FuncBlock{{"B0", "F"}, {"B1", "F"}, {"B1", "G"}},
		Entries:    []Block{"B0", "B9"},
		CallReturns: []CallReturn{
			{"B0", "G", "B5"},
		},
	}
	s.Canonicalize()
	ix := NewIndex(s)

	if !slices.Equal(ix.Stmts, []Stmt{"p", "s1", "s2"}) {
		t.Errorf("stmts = %v", ix.Stmts)
	}
	if !slices.Equal(ix.Blocks, []Block{"B0", "B1", "B2", "B5", "B9"}) {
		t.Errorf("blocks = %v", ix.Blocks)
	}
	if !ix.PHI["p"] || ix.PHI["s1"] {
		t.Error("PHI set wrong")
	}
	if _, ok := ix.BlockOf("s2"); ok {
		t.Error("BlockOf(s2) should be ambiguous")
	}
	if b, ok := ix.BlockOf("s1"); !ok || b != "B0" {
		t.Errorf("BlockOf(s1) = %q, %v", b, ok)
	}
	if _, ok := ix.OpcodeOf("s2"); ok {
		t.Error("OpcodeOf(s2) should be ambiguous")
	}
	if _, ok := ix.FuncOf("B1"); ok {
		t.Error("FuncOf(B1) should be ambiguous")
	}
	if !slices.Equal(ix.FuncEntries["F"], []Block{"B0"}) {
		t.Errorf("entries(F) = %v", ix.FuncEntries["F"])
	}
	if !ix.IsKnownBlock("B5") || ix.IsKnownBlock("B7") {
		t.Error("IsKnownBlock wrong")
	}
	if got := ix.ChainMembers("B0"); !slices.Equal(got, []Stmt{"s1"}) {
		t.Errorf("ChainMembers(B0) = %v, want [s1]", got)
	}
}

func TestBlockChain(t *testing.T) {
	s := &Store{
		Opcodes: []StmtOpcode{{"p", "PHI"}},
		StmtBlocks: []StmtBlock{
			{"a1", "A"}, {"a2", "A"}, {"a3", "A"}, {"p", "A"},
			{"b1", "B"}, {"b2", "B"},
			{"c1", "C"}, {"c2", "C"}, {"c3", "C"},
			{"d1", "D"}, {"d2", "D"},
			{"p", "E"},
		},
		Next: []StmtNext{
			{"a2", "a3"}, {"a1", "a2"}, {"a3", "b1"},
			{"c1", "c2"}, {"c1", "c3"},
			{"d1", "d2"}, {"d2", "d1"},
		},
	}
	s.Canonicalize()
	ix := NewIndex(s)

	tests := []struct {
		block Block
		want  []Stmt
		ok    bool
	}{
		{"A", []Stmt{"a1", "a2", "a3"}, true},
		{"B", nil, false}, // disconnected
		{"C", nil, false}, // fork
		{"D", nil, false}, // cycle
		{"E", nil, true},  // PHI only
	}
	for _, tt := range tests {
		got, ok := ix.BlockChain(tt.block)
		if ok != tt.ok || !slices.Equal(got, tt.want) {
			t.Errorf("BlockChain(%s) = %v, %v, want %v, %v", tt.block, got, ok, tt.want, tt.ok)
		}
	}
}
