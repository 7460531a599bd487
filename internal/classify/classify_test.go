package classify

import (
	"slices"
	"testing"

	"tacflow/internal/blocks"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
	"tacflow/internal/globalcfg"
)

func index(s *facts.Store) *facts.Index {
	s.Canonicalize()
	return facts.NewIndex(s)
}

func TestOpcodeClasses(t *testing.T) {
	tests := []struct {
		op               facts.Opcode
		terminal, halting bool
	}{
		{"STOP", true, true},
		{"RETURN", true, true},
		{"REVERT", false, true},
		{"INVALID", false, true},
		{"THROW", false, true},
		{"SELFDESTRUCT", false, true},
		{"JUMP", false, false},
		{"RETURNPRIVATE", false, false},
		{"CALLPRIVATE", false, false},
		{"PHI", false, false},
		{"stop", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := IsValidTerminalOp(tt.op); got != tt.terminal {
			t.Errorf("IsValidTerminalOp(%q) = %v, want %v", tt.op, got, tt.terminal)
		}
		if got := IsHaltingOp(tt.op); got != tt.halting {
			t.Errorf("IsHaltingOp(%q) = %v, want %v", tt.op, got, tt.halting)
		}
	}
}

func TestValidTerminals(t *testing.T) {
	ix := index(&facts.Store{
		Opcodes: []facts.StmtOpcode{
			{"s1", "PUSH"}, {"s2", "STOP"},
			{"s3", "RETURN"},
			{"s4", "REVERT"},
			{"s5", "STOP"}, {"s6", "JUMP"},
		},
		StmtBlocks: []facts.StmtBlock{
			{"s1", "B0"}, {"s2", "B0"},
			{"s3", "B1"},
			{"s4", "B2"},
			{"s5", "B3"}, {"s6", "B3"},
		},
		Next: []facts.StmtNext{{"s1", "s2"}, {"s5", "s6"}},
	})
	bd, _ := blocks.Resolve(ix)
	got := ValidTerminals(ix, bd)
	if want := []facts.Block{"B0", "B1"}; !slices.Equal(got, want) {
		t.Errorf("terminals = %v, want %v", got, want)
	}
}

func TestFunctionExitsLocalOnly(t *testing.T) {
	// B2 is a local sink even though a return edge leaves it globally.
	ix := index(&facts.Store{
		LocalEdges:  []facts.BlockEdge{{"B0", "B1"}, {"B1", "B2"}, {"C", "K"}},
		CallEdges:   []facts.CallEdge{{"C", "F"}},
		CallReturns: []facts.CallReturn{{"C", "F", "K"}},
		Entries:     []facts.Block{"B0"},
		InFunction:  []facts.FuncBlock{{"B0", "F"}, {"B1", "F"}, {"B2", "F"}},
		Opcodes:     []facts.StmtOpcode{{"r", "RETURNPRIVATE"}},
		StmtBlocks:  []facts.StmtBlock{{"r", "B2"}},
	})
	got := FunctionExits(ix)
	if want := []facts.Block{"B2", "K"}; !slices.Equal(got, want) {
		t.Errorf("exits = %v, want %v", got, want)
	}
	if g := globalcfg.Build(ix); !g.Has("B2", "K") {
		t.Error("expected a global edge out of the exit")
	}
}

func TestFallback(t *testing.T) {
	ix := index(&facts.Store{
		Selectors: []facts.FuncSelector{
			{"Ffb", "0x00000000"},
			{"Fpub", "0xa9059cbb"},
		},
		Names: []facts.FuncName{{"Fpub", "transfer(address,uint256)"}},
		Funcs: []facts.Func{"Ffb", "Fpub", "Fpriv"},
	})
	p, diags := PublicFunctions(ix)
	if diags.Len() != 0 {
		t.Fatalf("diags = %v", diags.Items())
	}
	if !p.IsFallback("Ffb") || p.IsFallback("Fpub") || p.IsFallback("Fpriv") {
		t.Errorf("fallbacks = %v", p.Fallbacks)
	}
	if !p.IsPublic("Fpub") || p.IsPublic("Fpriv") {
		t.Error("public set wrong")
	}
	if p.Names["Fpub"] != "transfer(address,uint256)" {
		t.Errorf("name = %q", p.Names["Fpub"])
	}
}

func TestFallbackAmbiguities(t *testing.T) {
	ix := index(&facts.Store{
		Selectors: []facts.FuncSelector{
			{"F1", "0x00000000"},
			{"F2", "0x0"},
			{"F2", "0x00000000"},
			{"F3", "0x00000000"},
			{"F4", "0xabcdef"},
			{"F5", "nothex"},
		},
	})
	p, diags := PublicFunctions(ix)
	if want := []facts.Func{"F1", "F2", "F3"}; !slices.Equal(p.Fallbacks, want) {
		t.Errorf("fallbacks = %v, want %v", p.Fallbacks, want)
	}
	codes := make(map[diag.Code]int)
	for _, d := range diags.Items() {
		codes[d.Code]++
	}
	if codes[diag.FallbackAmbiguous] != 1 {
		t.Errorf("ambiguous = %d, want 1", codes[diag.FallbackAmbiguous])
	}
	if codes[diag.SelectorMalformed] != 3 {
		t.Errorf("malformed = %d, want 3: %v", codes[diag.SelectorMalformed], diags.Items())
	}
	if p.IsPublic("F4") || p.IsPublic("F5") {
		t.Error("malformed selectors made a function public")
	}
	if diags.Degraded() {
		t.Error("classification issues must not degrade the run")
	}
}

func TestCheckTerminals(t *testing.T) {
	// 0x0 -> B1 (STOP), 0x0 -> B2 (JUMP, dead end), 0x0 -> B3 (no statements).
	// B9 is a sink unreachable from the entry and is ignored.
	ix := index(&facts.Store{
		Opcodes:    []facts.StmtOpcode{{"e", "JUMPI"}, {"s1", "STOP"}, {"s2", "JUMP"}, {"s9", "JUMP"}},
		StmtBlocks: []facts.StmtBlock{{"e", "0x0"}, {"s1", "B1"}, {"s2", "B2"}, {"s9", "B9"}},
		LocalEdges: []facts.BlockEdge{{"0x0", "B1"}, {"0x0", "B2"}, {"0x0", "B3"}},
	})
	bd, _ := blocks.Resolve(ix)
	g := globalcfg.Build(ix)
	diags := CheckTerminals(ix, bd, g)

	var got []string
	for _, d := range diags.Items() {
		if d.Code != diag.TerminalUnclassified {
			t.Errorf("code = %s", d.Code)
		}
		got = append(got, d.Entity)
	}
	if want := []string{"B2", "B3"}; !slices.Equal(got, want) {
		t.Errorf("unclassified = %v, want %v", got, want)
	}
}
