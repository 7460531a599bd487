// Package classify identifies function exits, the program entry block,
// valid program terminals and the fallback function.
package classify

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"

	"tacflow/internal/blocks"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
	"tacflow/internal/globalcfg"
)

// FallbackSelector is the reserved selector of the fallback function.
var FallbackSelector = []byte{0, 0, 0, 0}

// opThrow is the lifter's name for the designated invalid instruction.
const opThrow facts.Opcode = "THROW"

// EVMOp maps a lifter opcode to the EVM opcode of the same name. Pseudo
// opcodes (CALLPRIVATE, PHI, ...) have no EVM counterpart.
func EVMOp(op facts.Opcode) (vm.OpCode, bool) {
	code := vm.StringToOp(string(op))
	return code, code.String() == string(op)
}

// IsValidTerminalOp reports whether op halts the program normally.
func IsValidTerminalOp(op facts.Opcode) bool {
	code, ok := EVMOp(op)
	return ok && (code == vm.STOP || code == vm.RETURN)
}

// IsHaltingOp reports whether op ends execution, normally or not.
func IsHaltingOp(op facts.Opcode) bool {
	if op == opThrow {
		return true
	}
	code, ok := EVMOp(op)
	if !ok {
		return false
	}
	switch code {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID, vm.SELFDESTRUCT:
		return true
	}
	return false
}

// FunctionExits returns the sinks of the local graph: blocks with at least
// one incoming and no outgoing local edge. The global graph is not
// consulted.
func FunctionExits(ix *facts.Index) []facts.Block {
	var out []facts.Block
	for _, b := range ix.Blocks {
		if len(ix.LocalPreds[b]) > 0 && len(ix.LocalSuccs[b]) == 0 {
			out = append(out, b)
		}
	}
	return out
}

// ValidTerminals returns the blocks whose tail opcode is STOP or RETURN.
func ValidTerminals(ix *facts.Index, bd *blocks.Boundaries) []facts.Block {
	var out []facts.Block
	for _, b := range bd.Blocks() {
		tail, _ := bd.TailOf(b)
		if op, ok := ix.OpcodeOf(tail); ok && IsValidTerminalOp(op) {
			out = append(out, b)
		}
	}
	return out
}

// Public holds the public functions and their decoded selectors.
type Public struct {
	Selectors map[facts.Func][]byte
	Names     map[facts.Func]string
	Fallbacks []facts.Func
}

// IsPublic reports whether f has a selector.
func (p *Public) IsPublic(f facts.Func) bool {
	_, ok := p.Selectors[f]
	return ok
}

// IsFallback reports whether f is a fallback function.
func (p *Public) IsFallback(f facts.Func) bool {
	return slices.Contains(p.Fallbacks, f)
}

// PublicFunctions decodes selectors and finds the fallback function. A
// malformed selector is reported and the function is not public; more than
// one fallback candidate is reported but every candidate is kept.
func PublicFunctions(ix *facts.Index) (*Public, *diag.Diags) {
	diags := &diag.Diags{}
	p := &Public{
		Selectors: make(map[facts.Func][]byte),
		Names:     make(map[facts.Func]string),
	}
	for _, n := range ix.Store.Names {
		p.Names[n.Func] = n.Name
	}
	for _, r := range ix.Store.Selectors {
		sel, err := hexutil.Decode(r.Selector)
		if err != nil || len(sel) != 4 {
			msg := "selector is not 4 bytes"
			if err != nil {
				msg = err.Error()
			}
			diags.Add(diag.SelectorMalformed, string(r.Func), []string{r.Selector}, msg)
			continue
		}
		if prev, ok := p.Selectors[r.Func]; ok && !bytes.Equal(prev, sel) {
			diags.Add(diag.SelectorMalformed, string(r.Func), []string{hexutil.Encode(prev), r.Selector},
				"function has more than one selector")
			continue
		}
		p.Selectors[r.Func] = sel
		if bytes.Equal(sel, FallbackSelector) && !slices.Contains(p.Fallbacks, r.Func) {
			p.Fallbacks = append(p.Fallbacks, r.Func)
		}
	}
	slices.Sort(p.Fallbacks)
	if len(p.Fallbacks) > 1 {
		tuple := make([]string, len(p.Fallbacks))
		for i, f := range p.Fallbacks {
			tuple[i] = string(f)
		}
		diags.Add(diag.FallbackAmbiguous, hexutil.Encode(FallbackSelector), tuple,
			"more than one function carries the fallback selector")
	}
	return p, diags
}

// CheckTerminals reports blocks that end the program, as seen from the
// global entry block, but cannot be classified: global sinks reachable from
// the entry whose tail is missing or is not a halting opcode.
func CheckTerminals(ix *facts.Index, bd *blocks.Boundaries, g *globalcfg.Graph) *diag.Diags {
	diags := &diag.Diags{}
	reached := g.Reachable(facts.GlobalEntryBlock)
	var sinks []facts.Block
	for b := range reached {
		if len(g.Succs(b)) == 0 {
			sinks = append(sinks, b)
		}
	}
	slices.Sort(sinks)
	for _, b := range sinks {
		tail, ok := bd.TailOf(b)
		if !ok {
			if ix.IsKnownBlock(b) {
				diags.Add(diag.TerminalUnclassified, string(b), nil, "program exit has no tail statement")
			}
			continue
		}
		op, ok := ix.OpcodeOf(tail)
		if !ok || !IsHaltingOp(op) {
			diags.Add(diag.TerminalUnclassified, string(b), []string{string(tail), string(op)},
				"program exit does not end in a halting instruction")
		}
	}
	return diags
}
