package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"tacflow/internal/analysis"
	"tacflow/internal/diag"
)

var (
	structuralColor     = color.New(color.FgRed, color.Bold)
	bindingColor        = color.New(color.FgYellow, color.Bold)
	classificationColor = color.New(color.FgCyan)
	invalidColor        = color.New(color.FgMagenta)
	okColor             = color.New(color.FgGreen, color.Bold)
	degradedColor       = color.New(color.FgYellow, color.Bold)
)

func kindColor(k diag.Kind) *color.Color {
	switch k {
	case diag.KindStructural:
		return structuralColor
	case diag.KindBinding:
		return bindingColor
	case diag.KindClassification:
		return classificationColor
	default:
		return invalidColor
	}
}

// printReport writes a short human summary of r and at most limit
// violations (0 = all).
func printReport(w io.Writer, r *analysis.Result, limit int) {
	status := okColor.Sprint("ok")
	if r.Degraded {
		status = degradedColor.Sprint("degraded")
	}
	fmt.Fprintf(w, "%s: %s  statements=%d blocks=%d functions=%d edges=%d exits=%d terminals=%d violations=%d\n",
		r.Name, status, r.Stats.Statements, r.Stats.Blocks, r.Stats.Functions,
		len(r.Graph.Edges), len(r.Exits), len(r.Terminals), r.Diags.Len()+r.Dropped)

	items := r.Diags.Items()
	for i, d := range items {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "  ... %d more\n", len(items)-limit)
			break
		}
		fmt.Fprintf(w, "  %s %s %s: %s\n", kindColor(d.Kind).Sprintf("%-14s", d.Kind), d.Code, d.Entity, d.Msg)
	}
	if r.Dropped > 0 {
		fmt.Fprintf(w, "  (%d violations over max_diagnostics not recorded)\n", r.Dropped)
	}
}
