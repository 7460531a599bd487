package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"tacflow/internal/analysis"
	"tacflow/internal/callgraph"
	"tacflow/internal/facts"
	"tacflow/internal/globalcfg"
)

// Options limits what GlobalCFGDOT draws.
type Options struct {
	ReachableOnly bool // only blocks reachable from the global entry block
	MaxBlocks     int  // 0 = all
}

// edgeColor returns the DOT color for an edge kind.
func edgeColor(k globalcfg.EdgeKind, t Theme) string {
	switch k {
	case globalcfg.EdgeLocal:
		return t.EdgeLocal
	case globalcfg.EdgeCall:
		return t.EdgeCall
	case globalcfg.EdgeReturn:
		return t.EdgeReturn
	default:
		return t.EdgeMixed
	}
}

// edgeStyle returns dot style attributes for an edge kind.
func edgeStyle(k globalcfg.EdgeKind) string {
	switch k {
	case globalcfg.EdgeCall:
		return "bold"
	case globalcfg.EdgeReturn:
		return "dashed"
	default:
		return "solid"
	}
}

// GlobalCFGDOT renders the global CFG as DOT. Blocks are clustered by
// owning function; the entry block gets a heavy border, valid terminals and
// function exits are filled. Edges are colored by the rule that produced
// them.
func GlobalCFGDOT(r *analysis.Result, title string, t Theme, opts Options) string {
	blocks := renderBlocks(r, opts)
	keep := make(map[facts.Block]bool, len(blocks))
	for _, b := range blocks {
		keep[b] = true
	}

	byFunc := make(map[facts.Func][]facts.Block)
	var unowned []facts.Block
	for _, b := range blocks {
		if f, ok := r.Index.FuncOf(b); ok {
			byFunc[f] = append(byFunc[f], b)
		} else {
			unowned = append(unowned, b)
		}
	}
	funcs := make([]facts.Func, 0, len(byFunc))
	for f := range byFunc {
		funcs = append(funcs, f)
	}
	slices.Sort(funcs)

	var b strings.Builder
	b.WriteString("digraph globalcfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for _, f := range funcs {
		fmt.Fprintf(&b, "  subgraph %s {\n", dotID("cluster", string(f)))
		label := truncLabel(callgraph.FuncLabel(r, f), 60)
		if r.Public.IsPublic(f) {
			label += " " + hexutil.Encode(r.Public.Selectors[f])
		}
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(label))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, blk := range byFunc[f] {
			writeBlock(&b, "    ", r, blk, t)
		}
		b.WriteString("  }\n")
	}
	for _, blk := range unowned {
		writeBlock(&b, "  ", r, blk, t)
	}
	b.WriteByte('\n')

	for _, e := range r.Graph.Edges {
		if !keep[e.From] || !keep[e.To] {
			continue
		}
		fmt.Fprintf(&b, "  %s -> %s [color=%q, style=%q];\n",
			dotID("b", string(e.From)), dotID("b", string(e.To)), edgeColor(e.Kind, t), edgeStyle(e.Kind))
	}

	b.WriteString("}\n")
	return b.String()
}

// renderBlocks selects the blocks to draw, sorted.
func renderBlocks(r *analysis.Result, opts Options) []facts.Block {
	var out []facts.Block
	if opts.ReachableOnly {
		for blk := range r.Graph.Reachable(r.Entry) {
			out = append(out, blk)
		}
		slices.Sort(out)
	} else {
		out = slices.Clone(r.Index.Blocks)
	}
	if opts.MaxBlocks > 0 && len(out) > opts.MaxBlocks {
		out = out[:opts.MaxBlocks]
	}
	return out
}

func writeBlock(b *strings.Builder, indent string, r *analysis.Result, blk facts.Block, t Theme) {
	lines := []string{dotEscape(string(blk))}
	chain := r.Boundaries.Chain[blk]
	for i, s := range chain {
		if len(chain) > 6 && i == 2 {
			lines = append(lines, fmt.Sprintf("... (%d more)", len(chain)-4))
		}
		if len(chain) > 6 && i >= 2 && i < len(chain)-2 {
			continue
		}
		op, _ := r.Index.OpcodeOf(s)
		lines = append(lines, dotEscape(fmt.Sprintf("%s: %s", s, op)))
	}
	if args := r.Bindings.ActualArgsAt(blk); len(args) > 0 {
		vars := make([]string, len(args))
		for i, a := range args {
			vars[i] = string(a.Var)
		}
		lines = append(lines, dotEscape("args("+strings.Join(vars, ", ")+")"))
	}
	label := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"

	attrs := ""
	if blk == r.Entry {
		attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
	}
	switch {
	case r.IsValidTerminal(blk):
		attrs += fmt.Sprintf(", fillcolor=%q", t.TerminalFill)
	case r.IsExit(blk):
		attrs += fmt.Sprintf(", fillcolor=%q", t.ExitFill)
	}
	if _, ok := r.Index.FuncOf(blk); !ok {
		attrs += fmt.Sprintf(", fontcolor=%q", t.ExternalText)
	}
	fmt.Fprintf(b, "%s%s [label=<%s>%s];\n", indent, dotID("b", string(blk)), label, attrs)
}
