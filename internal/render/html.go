package render

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"tacflow/internal/analysis"
	"tacflow/internal/callgraph"
	"tacflow/internal/diag"
	"tacflow/internal/facts"
	"tacflow/internal/globalcfg"
)

// Links names the graph files the index page points at. Empty entries are
// not linked.
type Links struct {
	GlobalCFG string
	CallGraph string
	CFG       string
}

// WriteIndexHTML writes a small HTML page summarizing one analysis result.
func WriteIndexHTML(w io.Writer, r *analysis.Result, title string, links Links) {
	stats := ComputeStats(r)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: #1A1A1A; background: #F5F5F5; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.kind { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 4px; vertical-align: middle; }
a { color: #0B3D91; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.mono { font-family: "Courier New", monospace; font-size: 12px; }
</style>
</head>
<body>
`, htmlEscape(title))

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>Statements</td><td class=\"num\">%d</td></tr>\n", stats.Statements)
	fmt.Fprintf(w, "<tr><td>Blocks</td><td class=\"num\">%d</td></tr>\n", stats.Blocks)
	fmt.Fprintf(w, "<tr><td>Functions</td><td class=\"num\">%d</td></tr>\n", stats.Functions)
	fmt.Fprintf(w, "<tr><td>Public functions</td><td class=\"num\">%d</td></tr>\n", stats.Public)
	fmt.Fprintf(w, "<tr><td>Global edges</td><td class=\"num\">%d</td></tr>\n", stats.Edges)
	fmt.Fprintf(w, "<tr><td>Blocks reachable from %s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(string(r.Entry)), stats.Reachable)
	fmt.Fprintf(w, "<tr><td>Function exits</td><td class=\"num\">%d</td></tr>\n", len(r.Exits))
	fmt.Fprintf(w, "<tr><td>Valid terminals</td><td class=\"num\">%d</td></tr>\n", len(r.Terminals))
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Edge Kinds</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th></th><th>Kind</th><th>Count</th><th></th></tr>")
	kinds := make([]globalcfg.EdgeKind, 0, len(stats.KindCounts))
	for k := range stats.KindCounts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		count := stats.KindCounts[k]
		color := edgeColor(k, NASA)
		barW := 0
		if stats.Edges > 0 {
			barW = max(count*200/stats.Edges, 2)
		}
		fmt.Fprintf(w, "<tr><td><span class=\"kind\" style=\"background:%s\"></span></td><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			color, k, count, barW, color)
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Graphs</h2>")
	fmt.Fprint(w, "<p>")
	var hrefs []string
	if links.GlobalCFG != "" {
		hrefs = append(hrefs, fmt.Sprintf(`<a href="%s">Global CFG</a>`, htmlEscape(links.GlobalCFG)))
	}
	if links.CallGraph != "" {
		hrefs = append(hrefs, fmt.Sprintf(`<a href="%s">Call graph</a>`, htmlEscape(links.CallGraph)))
	}
	if links.CFG != "" {
		hrefs = append(hrefs, fmt.Sprintf(`<a href="%s">Per-function CFGs</a>`, htmlEscape(links.CFG)))
	}
	if len(hrefs) == 0 {
		fmt.Fprint(w, `<span style="color:#9E9E9E">no graphs written</span>`)
	}
	fmt.Fprint(w, strings.Join(hrefs, " | "))
	fmt.Fprintln(w, "</p>")

	if len(r.Public.Selectors) > 0 {
		fmt.Fprintln(w, "<h2>Public Functions</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Selector</th><th>Function</th><th></th></tr>")
		funcs := make([]facts.Func, 0, len(r.Public.Selectors))
		for f := range r.Public.Selectors {
			funcs = append(funcs, f)
		}
		slices.Sort(funcs)
		for _, f := range funcs {
			note := ""
			if r.Public.IsFallback(f) {
				note = "fallback"
			}
			fmt.Fprintf(w, "<tr><td class=\"mono\">%s</td><td class=\"mono\">%s</td><td>%s</td></tr>\n",
				hexutil.Encode(r.Public.Selectors[f]), htmlEscape(callgraph.FuncLabel(r, f)), note)
		}
		fmt.Fprintln(w, "</table>")
	}

	writeNameCounts(w, "Top Callers", "Outgoing", stats.TopCallers)
	writeNameCounts(w, "Top Callees", "Incoming", stats.TopCallees)

	if r.Diags.Len() > 0 {
		fmt.Fprintln(w, "<h2>Violations</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Kind</th><th>Code</th><th>Count</th></tr>")
		type key struct {
			kind diag.Kind
			code diag.Code
		}
		counts := make(map[key]int)
		var order []key
		for _, d := range r.Diags.Items() {
			k := key{d.Kind, d.Code}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
		for _, k := range order {
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"mono\">%s</td><td class=\"num\">%d</td></tr>\n", k.kind, k.code, counts[k])
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "</body></html>")
}

func writeNameCounts(w io.Writer, heading, col string, ncs []NameCount) {
	if len(ncs) == 0 {
		return
	}
	fmt.Fprintf(w, "<h2>%s</h2>\n", heading)
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><th>Function</th><th>%s</th></tr>\n", col)
	for _, nc := range ncs {
		fmt.Fprintf(w, "<tr><td class=\"mono\">%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(nc.Name), nc.Count)
	}
	fmt.Fprintln(w, "</table>")
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// SafeFileName converts a function label to a safe filename.
func SafeFileName(name string) string {
	r := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s := r.Replace(name)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// UniqueFileNames maps labels to safe filenames, suffixing _2, _3, ... when
// two labels sanitize to the same name. Comparison ignores case so the
// names also stay apart on case-insensitive filesystems.
func UniqueFileNames(labels []string) []string {
	used := make(map[string]bool, len(labels))
	out := make([]string, len(labels))
	for i, l := range labels {
		base := SafeFileName(l)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}
