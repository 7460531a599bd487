package facts

import (
	"bytes"
	"path/filepath"
	"slices"
	"testing"
)

func sampleStore() *Store {
	s := &Store{
		Name:       "c1",
		Opcodes:    []StmtOpcode{{"s2", "STOP"}, {"s1", "PUSH1"}},
		StmtBlocks: []StmtBlock{{"s1", "B0"}, {"s2", "B0"}},
		Next:       []StmtNext{{"s1", "s2"}},
		Uses:       []Operand{{"s1", "v1", 0}},
		Values:     []VarValue{{"v1", "0x4"}},
		LocalEdges: []BlockEdge{{"B0", "B1"}},
		InFunction: []FuncBlock{{"B0", "0x0"}},
		Selectors:  []FuncSelector{{"0x0", "0x00000000"}},
		FormalArgs: []FuncArg{{"0x0", "v9", 0}},
		Gas:        []BlockGas{{"B0", 21}},
		Chunks:     []BlockChunk{{"B0", 3}},
		Extra:      []Relation{{Name: "SHA3", Rows: [][]string{{"a", "b"}}}},
	}
	s.Canonicalize()
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := sampleStore()
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != s.Name {
		t.Errorf("name = %q, want %q", got.Name, s.Name)
	}
	if !slices.Equal(got.Opcodes, s.Opcodes) || !slices.Equal(got.Next, s.Next) || !slices.Equal(got.Uses, s.Uses) {
		t.Errorf("statement relations differ")
	}
	if !slices.Equal(got.Gas, s.Gas) || !slices.Equal(got.Chunks, s.Chunks) || !slices.Equal(got.Values, s.Values) {
		t.Errorf("pass-through relations differ")
	}
	if len(got.Extra) != 1 || got.Extra[0].Rows[0][1] != "b" {
		t.Errorf("extra = %+v", got.Extra)
	}
	if got.Stats() != s.Stats() {
		t.Errorf("stats = %+v, want %+v", got.Stats(), s.Stats())
	}
}

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "c1"+SnapshotExt)
	if err := WriteSnapshot(path, sampleStore()); err != nil {
		t.Fatal(err)
	}
	s, diags, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if diags.Len() != 0 || len(s.StmtBlocks) != 2 {
		t.Errorf("diags=%d stmt blocks=%d", diags.Len(), len(s.StmtBlocks))
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot(bytes.NewReader([]byte{0xc1})); err == nil {
		t.Fatal("expected error")
	}
}
