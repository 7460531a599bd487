package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tacflow/internal/analysis"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

func contract() *facts.Store {
	s := &facts.Store{
		Name: "c",
		Opcodes: []facts.StmtOpcode{
			{"s1", "PUSH"}, {"s2", "CALLPRIVATE"}, {"s3", "STOP"},
			{"s4", "ADD"}, {"s5", "RETURNPRIVATE"},
		},
		StmtBlocks: []facts.StmtBlock{
			{"s1", "0x0"}, {"s2", "0x0"}, {"s3", "K"}, {"s4", "E"}, {"s5", "R"},
		},
		Next: []facts.StmtNext{{"s1", "s2"}, {"s2", "s3"}, {"s3", "s4"}, {"s4", "s5"}},
		Uses: []facts.Operand{
			{"s2", "f", 0}, {"s2", "a", 1}, {"s5", "ra", 0}, {"s5", "x", 1},
		},
		Defs:        []facts.Operand{{"s1", "a", 0}, {"s4", "x", 0}},
		Values:      []facts.VarValue{{"a", "0x4"}},
		LocalEdges:  []facts.BlockEdge{{"0x0", "K"}, {"E", "R"}},
		CallEdges:   []facts.CallEdge{{"0x0", "F"}},
		CallReturns: []facts.CallReturn{{"0x0", "F", "K"}},
		InFunction:  []facts.FuncBlock{{"0x0", "0x0"}, {"K", "0x0"}, {"E", "F"}, {"R", "F"}},
		Entries:     []facts.Block{"0x0", "E"},
		Selectors:   []facts.FuncSelector{{"0x0", "0x00000000"}},
		Gas:         []facts.BlockGas{{"0x0", 30}},
		Extra:       []facts.Relation{{Name: "SHA3", Rows: [][]string{{"v", "0xab"}}}},
	}
	s.Canonicalize()
	return s
}

func run(t *testing.T) *analysis.Result {
	t.Helper()
	r, err := analysis.Run(context.Background(), analysis.Input{Store: contract()}, diag.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func readRel(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name+RelationFileExtension))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestWriteRelations(t *testing.T) {
	dir := t.TempDir()
	if err := WriteRelations(dir, run(t)); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		rel, want string
	}{
		{RelBlockHead, "0x0\ts1\nE\ts4\nK\ts3\nR\ts5\n"},
		{RelBlockTail, "0x0\ts2\nE\ts4\nK\ts3\nR\ts5\n"},
		{RelGlobalBlockEdge, "0x0\tE\nE\tR\nR\tK\n"},
		{RelActualArgs, "0x0\ta\t0\n"},
		{RelFormalReturnArgs, "F\tx\t0\n"},
		{RelFunctionExit, "K\nR\n"},
		{RelGlobalEntryBlock, "0x0\n"},
		{RelValidTerminal, "K\n"},
		{RelFallbackFunction, "0x0\n"},
		{RelFormalArgs, ""},
		{facts.RelBlockGas, "0x0\t30\n"},
		{facts.RelVarValue, "a\t0x4\n"},
		{"SHA3", "v\t0xab\n"},
	}
	for _, tt := range tests {
		if got := readRel(t, dir, tt.rel); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.rel, got, tt.want)
		}
	}
	if got := readRel(t, dir, RelVariableFunction); !strings.Contains(got, "x\tF\n") {
		t.Errorf("Variable_Function = %q", got)
	}
}

func TestRelationsRenamesClashingExtra(t *testing.T) {
	s := contract()
	s.Extra = []facts.Relation{
		{Name: RelBlockHead, Rows: [][]string{{"forged", "row"}}},
		{Name: "block_tail", Rows: [][]string{{"x"}}},
		{Name: RelBlockHead + "_input", Rows: [][]string{{"y"}}},
	}
	r, err := analysis.Run(context.Background(), analysis.Input{Store: s}, diag.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := WriteRelations(dir, r); err != nil {
		t.Fatal(err)
	}
	if got := readRel(t, dir, RelBlockHead); strings.Contains(got, "forged") {
		t.Errorf("Block_Head overwritten by input relation: %q", got)
	}
	tests := []struct {
		rel, want string
	}{
		{RelBlockHead + "_input", "forged\trow\n"},
		{"block_tail_input", "x\n"},
		{RelBlockHead + "_input_input", "y\n"},
	}
	for _, tt := range tests {
		if got := readRel(t, dir, tt.rel); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestOutputIdempotent(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	for _, dir := range []string{a, b} {
		r := run(t)
		if err := WriteRelations(dir, r); err != nil {
			t.Fatal(err)
		}
		if err := WriteDiagsJSON(dir, r.Diags); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(a)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		x, _ := os.ReadFile(filepath.Join(a, e.Name()))
		y, err := os.ReadFile(filepath.Join(b, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(x, y) {
			t.Errorf("%s differs between runs", e.Name())
		}
	}
}

func TestWriteSummaryAndDiags(t *testing.T) {
	dir := t.TempDir()
	r := run(t)
	if err := WriteSummaryJSON(dir, r); err != nil {
		t.Fatal(err)
	}
	if err := WriteDiagsJSON(dir, r.Diags); err != nil {
		t.Fatal(err)
	}

	var sum Summary
	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Edges != 3 || sum.EdgeKinds["call"] != 1 || sum.EdgeKinds["return"] != 1 || sum.Degraded {
		t.Errorf("summary = %+v", sum)
	}

	data, err = os.ReadFile(filepath.Join(dir, "diagnostics.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("diagnostics.json = %s", data)
	}
}

func TestWriteBatchJSON(t *testing.T) {
	dir := t.TempDir()
	outcomes := []analysis.Outcome{
		{Job: analysis.Job{Name: "a", Path: "/x/a"}, Degraded: true},
		{Job: analysis.Job{Name: "b", Path: "/x/b"}, Err: diag.ErrNoMembership},
	}
	if err := WriteBatchJSON(dir, outcomes); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "batch.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["degraded"] != true || rows[1]["error"] != diag.ErrNoMembership.Error() {
		t.Errorf("rows = %v", rows)
	}
}
