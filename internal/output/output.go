// Package output writes analysis results to files.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"tacflow/internal/analysis"
	"tacflow/internal/binding"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

// Output relation names.
const (
	RelBlockHead          = "Block_Head"
	RelBlockTail          = "Block_Tail"
	RelVariableFunction   = "Variable_Function"
	RelStatementFunction  = "Statement_Function"
	RelActualArgs         = "ActualArgs"
	RelFormalReturnArgs   = "FormalReturnArgs"
	RelFormalArgs         = "FormalArgs"
	RelActualReturnArgs   = "ActualReturnArgs"
	RelGlobalBlockEdge    = "GlobalBlockEdge"
	RelFunctionExit       = "FunctionExit"
	RelGlobalEntryBlock   = "GlobalEntryBlock"
	RelValidTerminal      = "ValidGlobalTerminalBlock"
	RelFallbackFunction   = "FallbackFunction"
	RelFunctionArity      = "FunctionArity"
	RelationFileExtension = ".csv"
)

// Relations renders every derived relation of r, followed by the
// pass-through relations, as string rows. Row order is deterministic.
func Relations(r *analysis.Result) []facts.Relation {
	var rels []facts.Relation
	add := func(name string, rows [][]string) {
		rels = append(rels, facts.Relation{Name: name, Rows: rows})
	}

	var head, tail [][]string
	for _, b := range r.Boundaries.Blocks() {
		h, _ := r.Boundaries.HeadOf(b)
		t, _ := r.Boundaries.TailOf(b)
		head = append(head, []string{string(b), string(h)})
		tail = append(tail, []string{string(b), string(t)})
	}
	add(RelBlockHead, head)
	add(RelBlockTail, tail)

	var vf [][]string
	for _, v := range r.Ownership.Vars() {
		if f, ok := r.Ownership.OwnerOf(v); ok {
			vf = append(vf, []string{string(v), string(f)})
		}
	}
	add(RelVariableFunction, vf)

	var sf [][]string
	for _, s := range r.Index.Stmts {
		if f, ok := r.Ownership.StmtFunc[s]; ok {
			sf = append(sf, []string{string(s), string(f)})
		}
	}
	add(RelStatementFunction, sf)

	bs := r.Bindings
	add(RelActualArgs, blockArgRows(bs.ActualArgs))
	add(RelFormalReturnArgs, funcArgRows(bs.FormalReturnArgs))
	add(RelFormalArgs, funcArgRows(bs.FormalArgs))
	add(RelActualReturnArgs, blockArgRows(bs.ActualReturnArgs))

	var edges [][]string
	for _, e := range r.Graph.Edges {
		edges = append(edges, []string{string(e.From), string(e.To)})
	}
	add(RelGlobalBlockEdge, edges)

	add(RelFunctionExit, blockRows(r.Exits))
	add(RelGlobalEntryBlock, [][]string{{string(r.Entry)}})
	add(RelValidTerminal, blockRows(r.Terminals))

	var fb [][]string
	for _, f := range r.Public.Fallbacks {
		fb = append(fb, []string{string(f)})
	}
	add(RelFallbackFunction, fb)
	add(RelFunctionArity, arityRows(bs.Arity))

	s := r.Store
	var gas, chunks, values [][]string
	for _, g := range s.Gas {
		gas = append(gas, []string{string(g.Block), strconv.FormatUint(g.Gas, 10)})
	}
	for _, c := range s.Chunks {
		chunks = append(chunks, []string{string(c.Block), strconv.FormatUint(c.Chunk, 10)})
	}
	for _, v := range s.Values {
		values = append(values, []string{string(v.Var), v.Value})
	}
	if len(gas) > 0 {
		add(facts.RelBlockGas, gas)
	}
	if len(chunks) > 0 {
		add(facts.RelBlockChunk, chunks)
	}
	if len(values) > 0 {
		add(facts.RelVarValue, values)
	}
	taken := make(map[string]bool, len(rels)+len(s.Extra))
	for _, rel := range rels {
		taken[strings.ToLower(rel.Name)] = true
	}
	for _, rel := range s.Extra {
		rel.Name = freeName(taken, rel.Name)
		rels = append(rels, rel)
	}
	return rels
}

// freeName returns name, or name suffixed with _input (then _input_2, ...)
// when a relation of that name is already written.
func freeName(taken map[string]bool, name string) string {
	out := name
	for n := 1; taken[strings.ToLower(out)]; n++ {
		out = name + "_input"
		if n > 1 {
			out = fmt.Sprintf("%s_input_%d", name, n)
		}
	}
	taken[strings.ToLower(out)] = true
	return out
}

func blockRows(bs []facts.Block) [][]string {
	rows := make([][]string, 0, len(bs))
	for _, b := range bs {
		rows = append(rows, []string{string(b)})
	}
	return rows
}

func blockArgRows(args []facts.BlockArg) [][]string {
	rows := make([][]string, 0, len(args))
	for _, a := range args {
		rows = append(rows, []string{string(a.Block), string(a.Var), strconv.Itoa(a.Pos)})
	}
	return rows
}

func funcArgRows(args []facts.FuncArg) [][]string {
	rows := make([][]string, 0, len(args))
	for _, a := range args {
		rows = append(rows, []string{string(a.Func), string(a.Var), strconv.Itoa(a.Pos)})
	}
	return rows
}

func arityRows(m map[facts.Func]binding.Arity) [][]string {
	funcs := make([]facts.Func, 0, len(m))
	for f := range m {
		funcs = append(funcs, f)
	}
	slices.Sort(funcs)
	rows := make([][]string, 0, len(funcs))
	for _, f := range funcs {
		a := m[f]
		rows = append(rows, []string{string(f), strconv.Itoa(a.Args), strconv.Itoa(a.Returns)})
	}
	return rows
}

// WriteRelations writes one tab-separated file per relation into dir.
// Empty relations produce empty files.
func WriteRelations(dir string, r *analysis.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	for _, rel := range Relations(r) {
		if err := writeTSV(filepath.Join(dir, rel.Name+RelationFileExtension), rel.Rows); err != nil {
			return err
		}
	}
	return nil
}

func writeTSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		w.WriteString(strings.Join(row, "\t"))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// Summary is the per-contract overview written to summary.json.
type Summary struct {
	Name        string            `json:"name"`
	Stats       facts.Stats       `json:"stats"`
	Heads       int               `json:"block_heads"`
	Edges       int               `json:"global_edges"`
	EdgeKinds   map[string]int    `json:"edge_kinds"`
	Exits       int               `json:"function_exits"`
	Terminals   int               `json:"valid_terminals"`
	Fallbacks   []facts.Func      `json:"fallback_functions,omitempty"`
	Diagnostics map[diag.Kind]int `json:"diagnostics"`
	Dropped     int               `json:"diagnostics_dropped,omitempty"`
	Degraded    bool              `json:"degraded"`
}

// NewSummary condenses r.
func NewSummary(r *analysis.Result) Summary {
	s := Summary{
		Name:        r.Name,
		Stats:       r.Stats,
		Heads:       len(r.Boundaries.Head),
		Edges:       len(r.Graph.Edges),
		EdgeKinds:   make(map[string]int),
		Exits:       len(r.Exits),
		Terminals:   len(r.Terminals),
		Fallbacks:   r.Public.Fallbacks,
		Diagnostics: make(map[diag.Kind]int),
		Dropped:     r.Dropped,
		Degraded:    r.Degraded,
	}
	for _, e := range r.Graph.Edges {
		s.EdgeKinds[e.Kind.String()]++
	}
	for _, d := range r.Diags.Items() {
		s.Diagnostics[d.Kind]++
	}
	return s
}

// WriteSummaryJSON writes summary.json.
func WriteSummaryJSON(dir string, r *analysis.Result) error {
	return writeJSON(filepath.Join(dir, "summary.json"), NewSummary(r))
}

// WriteDiagsJSON writes the sorted violation list to diagnostics.json.
func WriteDiagsJSON(dir string, d *diag.Diags) error {
	items := d.Items()
	if items == nil {
		items = []diag.Diag{}
	}
	return writeJSON(filepath.Join(dir, "diagnostics.json"), items)
}

// WriteBatchJSON writes the per-contract outcomes of a batch run.
func WriteBatchJSON(dir string, outcomes []analysis.Outcome) error {
	type row struct {
		Name        string      `json:"name"`
		Path        string      `json:"path"`
		Stats       facts.Stats `json:"stats"`
		Diagnostics int         `json:"diagnostics"`
		Degraded    bool        `json:"degraded"`
		Error       string      `json:"error,omitempty"`
	}
	rows := make([]row, 0, len(outcomes))
	for _, oc := range outcomes {
		rw := row{
			Name:        oc.Job.Name,
			Path:        oc.Job.Path,
			Stats:       oc.Stats,
			Diagnostics: oc.Diagnostics,
			Degraded:    oc.Degraded,
		}
		if oc.Err != nil {
			rw.Error = oc.Err.Error()
		}
		rows = append(rows, rw)
	}
	return writeJSON(filepath.Join(dir, "batch.json"), rows)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
