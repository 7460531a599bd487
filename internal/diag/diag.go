// Package diag collects data-integrity violations found while deriving
// control-flow structure from lifter facts.
package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the violation family a Code belongs to.
type Kind string

const (
	KindStructural     Kind = "structural"
	KindBinding        Kind = "binding"
	KindClassification Kind = "classification"
	KindInvalid        Kind = "invalid" // malformed input row
)

// Code identifies one violation.
type Code string

const (
	StmtNoBlock      Code = "stmt_no_block"
	StmtMultiBlock   Code = "stmt_multi_block"
	StmtMultiOpcode  Code = "stmt_multi_opcode"
	BlockNoFunction  Code = "block_no_function"
	BlockMultiFunc   Code = "block_multi_function"
	BlockBrokenChain Code = "block_broken_chain"
	VarMultiFunction Code = "var_multi_function"
	VarNoFunction    Code = "var_no_function"

	ArgNonContiguous Code = "arg_non_contiguous"
	ArgDuplicatePos  Code = "arg_duplicate_position"
	ArityMismatch    Code = "arity_mismatch"

	FallbackAmbiguous    Code = "fallback_ambiguous"
	SelectorMalformed    Code = "selector_malformed"
	TerminalUnclassified Code = "terminal_unclassified"

	MalformedRow Code = "malformed_row"
)

var codeKind = map[Code]Kind{
	StmtNoBlock:          KindStructural,
	StmtMultiBlock:       KindStructural,
	StmtMultiOpcode:      KindStructural,
	BlockNoFunction:      KindStructural,
	BlockMultiFunc:       KindStructural,
	BlockBrokenChain:     KindStructural,
	VarMultiFunction:     KindStructural,
	VarNoFunction:        KindStructural,
	ArgNonContiguous:     KindBinding,
	ArgDuplicatePos:      KindBinding,
	ArityMismatch:        KindClassification,
	FallbackAmbiguous:    KindClassification,
	SelectorMalformed:    KindClassification,
	TerminalUnclassified: KindClassification,
	MalformedRow:         KindInvalid,
}

// Kind returns the family of c. Unknown codes are treated as invalid input.
func (c Code) Kind() Kind {
	if k, ok := codeKind[c]; ok {
		return k
	}
	return KindInvalid
}

// Diag records one violation: the entity it is about and the offending tuple.
type Diag struct {
	Kind   Kind     `json:"kind"`
	Code   Code     `json:"code"`
	Entity string   `json:"entity"`
	Tuple  []string `json:"tuple,omitempty"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	if len(d.Tuple) == 0 {
		return fmt.Sprintf("[%s/%s] %s: %s", d.Kind, d.Code, d.Entity, d.Msg)
	}
	return fmt.Sprintf("[%s/%s] %s: %s (%s)", d.Kind, d.Code, d.Entity, d.Msg, strings.Join(d.Tuple, ", "))
}

// Diags accumulates diagnostics. The zero value is ready to use.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(code Code, entity string, tuple []string, msg string) {
	d.items = append(d.items, Diag{Kind: code.Kind(), Code: code, Entity: entity, Tuple: tuple, Msg: msg})
}

func (d *Diags) Addf(code Code, entity string, tuple []string, format string, args ...any) {
	d.Add(code, entity, tuple, fmt.Sprintf(format, args...))
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Merge appends the diagnostics of other.
func (d *Diags) Merge(other *Diags) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Has reports whether any diagnostic of the given kind was recorded.
func (d *Diags) Has(kind Kind) bool {
	for _, it := range d.items {
		if it.Kind == kind {
			return true
		}
	}
	return false
}

// Degraded reports whether structural or binding data was excluded.
func (d *Diags) Degraded() bool {
	return d.Has(KindStructural) || d.Has(KindBinding)
}

// Sort orders diagnostics by kind, code, entity, tuple and message so that
// reports are stable across runs.
func (d *Diags) Sort() {
	sort.SliceStable(d.items, func(i, j int) bool {
		a, b := d.items[i], d.items[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if ta, tb := strings.Join(a.Tuple, "\t"), strings.Join(b.Tuple, "\t"); ta != tb {
			return ta < tb
		}
		return a.Msg < b.Msg
	})
}

// Truncate keeps at most n diagnostics. n <= 0 keeps everything.
func (d *Diags) Truncate(n int) int {
	if n <= 0 || len(d.items) <= n {
		return 0
	}
	dropped := len(d.items) - n
	d.items = d.items[:n]
	return dropped
}

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // collect violations, exclude offending data, continue
	ModeStrict                 // first structural or binding violation fails the run
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// ParseMode maps a config or flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best-effort", "besteffort":
		return ModeBestEffort, nil
	case "strict":
		return ModeStrict, nil
	}
	return ModeBestEffort, fmt.Errorf("diag: unknown mode %q", s)
}

// Options controls analysis behavior across packages.
type Options struct {
	Mode          Mode
	MaxStatements int // abandon contracts with more statements; 0 = unlimited
	MaxDiags      int // report cap; 0 = unlimited
}

var (
	ErrNoMembership = errors.New("no function membership facts")
	ErrTooLarge     = errors.New("contract exceeds statement limit")
	ErrStrict       = errors.New("strict mode: data-integrity violation")
)

// StrictErr returns an ErrStrict-wrapping error for the first structural or
// binding diagnostic, or nil when there is none.
func (d *Diags) StrictErr() error {
	for _, it := range d.items {
		if it.Kind == KindStructural || it.Kind == KindBinding {
			return fmt.Errorf("%w: %s", ErrStrict, it)
		}
	}
	return nil
}
