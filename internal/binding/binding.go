// Package binding extracts positional argument and return-value bindings at
// private call and return sites.
//
// A CALLPRIVATE statement uses the callee reference in operand slot 0 and
// the actual arguments in slots 1..k. A RETURNPRIVATE statement uses the
// return address in slot 0 and the returned values in slots 1..k. Bindings
// are published zero-based.
package binding

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

// Arity is the parameter and return-value count of a function.
type Arity struct {
	Args    int `json:"args"`
	Returns int `json:"returns"`
}

// Bindings holds the four positional binding relations.
type Bindings struct {
	ActualArgs       []facts.BlockArg // derived: call site block, variable, position
	FormalReturnArgs []facts.FuncArg  // derived: function, variable, position
	FormalArgs       []facts.FuncArg  // consumed from the lifter
	ActualReturnArgs []facts.BlockArg // consumed from the lifter

	Arity map[facts.Func]Arity
}

// ActualArgsAt returns the actual arguments bound at the call in block b,
// ordered by position.
func (bs *Bindings) ActualArgsAt(b facts.Block) []facts.BlockArg {
	i, _ := slices.BinarySearchFunc(bs.ActualArgs, b, func(a facts.BlockArg, target facts.Block) int {
		return cmp.Compare(a.Block, target)
	})
	j := i
	for j < len(bs.ActualArgs) && bs.ActualArgs[j].Block == b {
		j++
	}
	return bs.ActualArgs[i:j]
}

// Bind derives ActualArgs and FormalReturnArgs and validates the consumed
// FormalArgs and ActualReturnArgs. A site whose positions are not exactly
// 0..k-1 with one variable each is reported and contributes nothing.
func Bind(ix *facts.Index) (*Bindings, *diag.Diags) {
	diags := &diag.Diags{}
	bs := &Bindings{Arity: make(map[facts.Func]Arity)}

	for _, s := range ix.Stmts {
		op, ok := ix.OpcodeOf(s)
		if !ok || (op != facts.OpCallPrivate && op != facts.OpReturnPrivate) {
			continue
		}
		b, ok := ix.BlockOf(s)
		if !ok {
			continue
		}
		var real []facts.Operand
		for _, u := range ix.Uses[s] {
			if u.Pos >= 1 {
				real = append(real, u)
			}
		}
		vars, ok := checkSite(diags, string(s), real, 1)
		if !ok {
			continue
		}

		switch op {
		case facts.OpCallPrivate:
			for i, v := range vars {
				bs.ActualArgs = append(bs.ActualArgs, facts.BlockArg{Block: b, Var: v, Pos: i})
			}
		case facts.OpReturnPrivate:
			f, ok := ix.FuncOf(b)
			if !ok {
				continue
			}
			for i, v := range vars {
				bs.FormalReturnArgs = append(bs.FormalReturnArgs, facts.FuncArg{Func: f, Var: v, Pos: i})
			}
			if ar := bs.Arity[f]; len(vars) > ar.Returns {
				ar.Returns = len(vars)
				bs.Arity[f] = ar
			}
		}
	}

	bs.FormalArgs = consumeFuncArgs(diags, ix.Store.FormalArgs)
	for _, a := range bs.FormalArgs {
		ar := bs.Arity[a.Func]
		if a.Pos+1 > ar.Args {
			ar.Args = a.Pos + 1
		}
		bs.Arity[a.Func] = ar
	}
	bs.ActualReturnArgs = consumeBlockArgs(diags, ix.Store.ActualReturnArgs)

	bs.ActualArgs = slices.Compact(sorted(bs.ActualArgs, facts.CompareBlockArg))
	bs.FormalReturnArgs = slices.Compact(sorted(bs.FormalReturnArgs, facts.CompareFuncArg))

	checkArity(diags, ix, bs)
	return bs, diags
}

// checkSite validates that ops occupy positions base..base+k-1 exactly once
// and returns the variables in position order.
func checkSite(diags *diag.Diags, site string, ops []facts.Operand, base int) ([]facts.Var, bool) {
	byPos := make(map[int][]facts.Var, len(ops))
	for _, op := range ops {
		if !slices.Contains(byPos[op.Pos], op.Var) {
			byPos[op.Pos] = append(byPos[op.Pos], op.Var)
		}
	}
	positions := make([]int, 0, len(byPos))
	for p := range byPos {
		positions = append(positions, p)
	}
	slices.Sort(positions)

	ok := true
	for _, p := range positions {
		if vs := byPos[p]; len(vs) > 1 {
			tuple := []string{strconv.Itoa(p)}
			for _, v := range vs {
				tuple = append(tuple, string(v))
			}
			diags.Addf(diag.ArgDuplicatePos, site, tuple, "%d variables bound at position %d", len(vs), p)
			ok = false
		}
	}
	for i, p := range positions {
		if p != base+i {
			tuple := make([]string, len(positions))
			for j, q := range positions {
				tuple[j] = strconv.Itoa(q)
			}
			diags.Addf(diag.ArgNonContiguous, site, tuple, "positions are not %s", span(base, len(positions)))
			ok = false
			break
		}
	}
	if !ok {
		return nil, false
	}
	vars := make([]facts.Var, len(positions))
	for i, p := range positions {
		vars[i] = byPos[p][0]
	}
	return vars, true
}

func span(base, k int) string {
	if k == 0 {
		return "empty"
	}
	return fmt.Sprintf("%d..%d", base, base+k-1)
}

func consumeFuncArgs(diags *diag.Diags, rows []facts.FuncArg) []facts.FuncArg {
	sites := make(map[facts.Func][]facts.Operand)
	var order []facts.Func
	for _, r := range rows {
		if _, seen := sites[r.Func]; !seen {
			order = append(order, r.Func)
		}
		sites[r.Func] = append(sites[r.Func], facts.Operand{Var: r.Var, Pos: r.Pos})
	}
	slices.Sort(order)
	var out []facts.FuncArg
	for _, f := range order {
		vars, ok := checkSite(diags, string(f), sites[f], 0)
		if !ok {
			continue
		}
		for i, v := range vars {
			out = append(out, facts.FuncArg{Func: f, Var: v, Pos: i})
		}
	}
	return out
}

func consumeBlockArgs(diags *diag.Diags, rows []facts.BlockArg) []facts.BlockArg {
	sites := make(map[facts.Block][]facts.Operand)
	var order []facts.Block
	for _, r := range rows {
		if _, seen := sites[r.Block]; !seen {
			order = append(order, r.Block)
		}
		sites[r.Block] = append(sites[r.Block], facts.Operand{Var: r.Var, Pos: r.Pos})
	}
	slices.Sort(order)
	var out []facts.BlockArg
	for _, b := range order {
		vars, ok := checkSite(diags, string(b), sites[b], 0)
		if !ok {
			continue
		}
		for i, v := range vars {
			out = append(out, facts.BlockArg{Block: b, Var: v, Pos: i})
		}
	}
	return out
}

// checkArity compares the argument count at each call site with the
// callee's declared parameters. Mismatches are reported, not excluded.
func checkArity(diags *diag.Diags, ix *facts.Index, bs *Bindings) {
	count := make(map[facts.Block]int)
	for _, a := range bs.ActualArgs {
		count[a.Block]++
	}
	declared := make(map[facts.Func]bool)
	for _, a := range bs.FormalArgs {
		declared[a.Func] = true
	}
	for _, e := range ix.Store.CallEdges {
		if !declared[e.Callee] {
			continue
		}
		if got, ar := count[e.Caller], bs.Arity[e.Callee]; got != ar.Args {
			diags.Addf(diag.ArityMismatch, string(e.Caller), []string{string(e.Callee)},
				"call passes %d arguments, callee declares %d", got, ar.Args)
		}
	}
}

func sorted[T any](rows []T, compare func(a, b T) int) []T {
	slices.SortFunc(rows, compare)
	return rows
}
