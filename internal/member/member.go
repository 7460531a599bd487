// Package member attributes every variable and statement to its owning
// function.
package member

import (
	"slices"

	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

// Ownership is the variable and statement membership of one contract.
type Ownership struct {
	VarFunc  map[facts.Var]facts.Func
	StmtFunc map[facts.Stmt]facts.Func
	vars     map[facts.Var]bool
}

// IsVariable reports whether v is used, defined, or a formal parameter.
func (o *Ownership) IsVariable(v facts.Var) bool { return o.vars[v] }

// OwnerOf returns the function owning v.
func (o *Ownership) OwnerOf(v facts.Var) (facts.Func, bool) {
	f, ok := o.VarFunc[v]
	return f, ok
}

// Vars returns every variable, sorted.
func (o *Ownership) Vars() []facts.Var {
	out := make([]facts.Var, 0, len(o.vars))
	for v := range o.vars {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Resolve computes ownership. Variables with uses or definitions are owned
// through the block of the statement; parameters with no definition are
// owned by the function declaring them. Conflicting attributions are
// reported and the variable is left unowned.
func Resolve(ix *facts.Index) (*Ownership, *diag.Diags) {
	diags := &diag.Diags{}
	o := &Ownership{
		VarFunc:  make(map[facts.Var]facts.Func),
		StmtFunc: make(map[facts.Stmt]facts.Func),
		vars:     make(map[facts.Var]bool),
	}

	for _, b := range ix.Blocks {
		if len(ix.BlockStmts[b]) > 0 && len(ix.BlockFuncs[b]) == 0 {
			diags.Add(diag.BlockNoFunction, string(b), nil, "block has statements but no function")
		}
		if fs := ix.BlockFuncs[b]; len(fs) > 1 {
			tuple := make([]string, len(fs))
			for i, f := range fs {
				tuple[i] = string(f)
			}
			diags.Add(diag.BlockMultiFunc, string(b), tuple, "block belongs to more than one function")
		}
	}

	for _, s := range ix.Stmts {
		if f, ok := stmtFunc(ix, s); ok {
			o.StmtFunc[s] = f
		}
	}

	candidates := make(map[facts.Var][]facts.Func)
	defined := make(map[facts.Var]bool)
	attribute := func(op facts.Operand) {
		o.vars[op.Var] = true
		if f, ok := o.StmtFunc[op.Stmt]; ok {
			candidates[op.Var] = appendUniq(candidates[op.Var], f)
		}
	}
	for _, op := range ix.Store.Uses {
		attribute(op)
	}
	for _, op := range ix.Store.Defs {
		defined[op.Var] = true
		attribute(op)
	}

	params := make(map[facts.Var][]facts.Func)
	for _, a := range ix.Store.FormalArgs {
		o.vars[a.Var] = true
		params[a.Var] = appendUniq(params[a.Var], a.Func)
	}
	for v, fs := range params {
		if defined[v] {
			continue
		}
		for _, f := range fs {
			candidates[v] = appendUniq(candidates[v], f)
		}
	}

	for _, v := range o.Vars() {
		fs := candidates[v]
		switch len(fs) {
		case 0:
			diags.Add(diag.VarNoFunction, string(v), nil, "no owning function can be resolved")
		case 1:
			o.VarFunc[v] = fs[0]
		default:
			slices.Sort(fs)
			tuple := make([]string, len(fs))
			for i, f := range fs {
				tuple[i] = string(f)
			}
			diags.Add(diag.VarMultiFunction, string(v), tuple, "variable attributed to more than one function")
		}
	}
	return o, diags
}

func stmtFunc(ix *facts.Index, s facts.Stmt) (facts.Func, bool) {
	b, ok := ix.BlockOf(s)
	if !ok {
		return "", false
	}
	return ix.FuncOf(b)
}

func appendUniq(fs []facts.Func, f facts.Func) []facts.Func {
	if slices.Contains(fs, f) {
		return fs
	}
	return append(fs, f)
}
