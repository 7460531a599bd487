package facts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"tacflow/internal/diag"
)

// Relation file names as written by the lifter. Files carry one
// tab-separated row per line and a .csv or .facts extension.
const (
	RelOpcode           = "TAC_Op"
	RelStmtBlock        = "TAC_Block"
	RelStmtNext         = "TAC_Statement_Next"
	RelPHI              = "TAC_PHI"
	RelUse              = "TAC_Use"
	RelDef              = "TAC_Def"
	RelVarValue         = "TAC_Variable_Value"
	RelLocalEdge        = "LocalBlockEdge"
	RelFallthrough      = "IRFallthroughEdge"
	RelCallEdge         = "IRFunctionCall"
	RelCallReturn       = "IRFunctionCallReturn"
	RelFunction         = "Function"
	RelInFunction       = "InFunction"
	RelFunctionEntry    = "IRFunctionEntry"
	RelPublicFunction   = "PublicFunction"
	RelFunctionName     = "HighLevelFunctionName"
	RelFormalArgs       = "FormalArgs"
	RelActualReturnArgs = "ActualReturnArgs"
	RelBlockGas         = "TAC_Block_Gas"
	RelBlockChunk       = "TAC_Block_CodeChunkAccessed"
)

// Extensions accepted by LoadDir.
var Extensions = []string{".csv", ".facts"}

type rowParser struct {
	arity int
	parse func(s *Store, row []string) error
}

var parsers = map[string]rowParser{
	RelOpcode: {2, func(s *Store, r []string) error {
		s.Opcodes = append(s.Opcodes, StmtOpcode{Stmt(r[0]), Opcode(r[1])})
		return nil
	}},
	RelStmtBlock: {2, func(s *Store, r []string) error {
		s.StmtBlocks = append(s.StmtBlocks, StmtBlock{Stmt(r[0]), Block(r[1])})
		return nil
	}},
	RelStmtNext: {2, func(s *Store, r []string) error {
		s.Next = append(s.Next, StmtNext{Stmt(r[0]), Stmt(r[1])})
		return nil
	}},
	RelPHI: {1, func(s *Store, r []string) error {
		s.PHIs = append(s.PHIs, Stmt(r[0]))
		return nil
	}},
	RelUse: {3, func(s *Store, r []string) error {
		pos, err := parsePos(r[2])
		if err != nil {
			return err
		}
		s.Uses = append(s.Uses, Operand{Stmt(r[0]), Var(r[1]), pos})
		return nil
	}},
	RelDef: {3, func(s *Store, r []string) error {
		pos, err := parsePos(r[2])
		if err != nil {
			return err
		}
		s.Defs = append(s.Defs, Operand{Stmt(r[0]), Var(r[1]), pos})
		return nil
	}},
	RelVarValue: {2, func(s *Store, r []string) error {
		v, err := CanonicalValue(r[1])
		if err != nil {
			return err
		}
		s.Values = append(s.Values, VarValue{Var(r[0]), v})
		return nil
	}},
	RelLocalEdge: {2, func(s *Store, r []string) error {
		s.LocalEdges = append(s.LocalEdges, BlockEdge{Block(r[0]), Block(r[1])})
		return nil
	}},
	RelFallthrough: {2, func(s *Store, r []string) error {
		s.Fallthrough = append(s.Fallthrough, BlockEdge{Block(r[0]), Block(r[1])})
		return nil
	}},
	RelCallEdge: {2, func(s *Store, r []string) error {
		s.CallEdges = append(s.CallEdges, CallEdge{Block(r[0]), Func(r[1])})
		return nil
	}},
	RelCallReturn: {3, func(s *Store, r []string) error {
		s.CallReturns = append(s.CallReturns, CallReturn{Block(r[0]), Func(r[1]), Block(r[2])})
		return nil
	}},
	RelFunction: {1, func(s *Store, r []string) error {
		s.Funcs = append(s.Funcs, Func(r[0]))
		return nil
	}},
	RelInFunction: {2, func(s *Store, r []string) error {
		s.InFunction = append(s.InFunction, FuncBlock{Block(r[0]), Func(r[1])})
		return nil
	}},
	RelFunctionEntry: {1, func(s *Store, r []string) error {
		s.Entries = append(s.Entries, Block(r[0]))
		return nil
	}},
	RelPublicFunction: {2, func(s *Store, r []string) error {
		s.Selectors = append(s.Selectors, FuncSelector{Func(r[0]), r[1]})
		return nil
	}},
	RelFunctionName: {2, func(s *Store, r []string) error {
		s.Names = append(s.Names, FuncName{Func(r[0]), r[1]})
		return nil
	}},
	RelFormalArgs: {3, func(s *Store, r []string) error {
		pos, err := parsePos(r[2])
		if err != nil {
			return err
		}
		s.FormalArgs = append(s.FormalArgs, FuncArg{Func(r[0]), Var(r[1]), pos})
		return nil
	}},
	RelActualReturnArgs: {3, func(s *Store, r []string) error {
		pos, err := parsePos(r[2])
		if err != nil {
			return err
		}
		s.ActualReturnArgs = append(s.ActualReturnArgs, BlockArg{Block(r[0]), Var(r[1]), pos})
		return nil
	}},
	RelBlockGas: {2, func(s *Store, r []string) error {
		gas, err := parseUint(r[1])
		if err != nil {
			return err
		}
		s.Gas = append(s.Gas, BlockGas{Block(r[0]), gas})
		return nil
	}},
	RelBlockChunk: {2, func(s *Store, r []string) error {
		chunk, err := parseUint(r[1])
		if err != nil {
			return err
		}
		s.Chunks = append(s.Chunks, BlockChunk{Block(r[0]), chunk})
		return nil
	}},
}

// KnownRelations lists the relation names LoadDir interprets.
func KnownRelations() []string {
	names := make([]string, 0, len(parsers))
	for n := range parsers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadDir reads every relation file in dir into a canonical Store. Rows that
// cannot be parsed are reported in the returned Diags and skipped; files the
// loader does not know are kept verbatim as Extra relations.
func LoadDir(dir string) (*Store, *diag.Diags, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("facts: read dir: %w", err)
	}
	s := &Store{Name: filepath.Base(dir)}
	diags := &diag.Diags{}
	found := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rel, ok := relationName(e.Name())
		if !ok {
			continue
		}
		found++
		if err := loadFile(s, diags, filepath.Join(dir, e.Name()), rel); err != nil {
			return nil, nil, err
		}
	}
	if found == 0 {
		return nil, nil, fmt.Errorf("facts: %s: %w", dir, ErrNoFacts)
	}
	s.Canonicalize()
	return s, diags, nil
}

// ErrNoFacts is returned when a directory holds no relation files.
var ErrNoFacts = errors.New("no relation files")

// HasFacts reports whether dir directly contains at least one relation file.
func HasFacts(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if _, ok := relationName(e.Name()); ok && !e.IsDir() {
			return true
		}
	}
	return false
}

func relationName(file string) (string, bool) {
	for _, ext := range Extensions {
		if strings.HasSuffix(file, ext) {
			return strings.TrimSuffix(file, ext), true
		}
	}
	return "", false
}

func loadFile(s *Store, diags *diag.Diags, path, rel string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("facts: open %s: %w", path, err)
	}
	defer f.Close()

	p, known := parsers[rel]
	var extra *Relation
	if !known {
		// foo.csv and foo.facts are one relation.
		i := slices.IndexFunc(s.Extra, func(r Relation) bool { return r.Name == rel })
		if i < 0 {
			s.Extra = append(s.Extra, Relation{Name: rel})
			i = len(s.Extra) - 1
		}
		extra = &s.Extra[i]
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		row := strings.Split(text, "\t")
		if extra != nil {
			extra.Rows = append(extra.Rows, row)
			continue
		}
		where := fmt.Sprintf("%s:%d", rel, line)
		if len(row) != p.arity {
			diags.Addf(diag.MalformedRow, where, row, "want %d columns, got %d", p.arity, len(row))
			continue
		}
		if err := p.parse(s, row); err != nil {
			diags.Add(diag.MalformedRow, where, row, err.Error())
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("facts: read %s: %w", path, err)
	}
	return nil
}

func parsePos(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("position %q: %w", s, err)
	}
	pos, err := safecast.Conv[int](n)
	if err != nil {
		return 0, fmt.Errorf("position %q: %w", s, err)
	}
	if pos < 0 {
		return 0, fmt.Errorf("position %q: negative", s)
	}
	return pos, nil
}

func parseUint(s string) (uint64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, err)
	}
	u, err := safecast.Conv[uint64](n)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, err)
	}
	return u, nil
}
