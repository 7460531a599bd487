package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	latrender "github.com/zboralski/lattice/render"

	"tacflow/internal/analysis"
	"tacflow/internal/callgraph"
	"tacflow/internal/config"
	"tacflow/internal/facts"
	"tacflow/internal/output"
	"tacflow/internal/render"
)

var (
	analyzeOut     string
	analyzeDOT     bool
	analyzeLattice bool
	analyzeHTML    bool
	analyzeShow    int
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output directory (required)")
	analyzeCmd.Flags().BoolVar(&analyzeDOT, "dot", false, "also write the global CFG as DOT")
	analyzeCmd.Flags().BoolVar(&analyzeLattice, "lattice", false, "also write lattice call graph and per-function CFG DOT")
	analyzeCmd.Flags().BoolVar(&analyzeHTML, "html", false, "also write index.html")
	analyzeCmd.Flags().IntVar(&analyzeShow, "show", 20, "violations printed to stdout (0 = all)")
	analyzeCmd.Flags().Int("max-statements", 0, "abandon contracts with more statements (0 = unlimited)")
	analyzeCmd.Flags().Int("max-diagnostics", 0, "cap on recorded violations (0 = unlimited)")
	analyzeCmd.MarkFlagRequired("out")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <facts-dir|snapshot.mp>",
	Short: "Derive control-flow relations for one contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		out := e.cfg.Output
		out.DOT = out.DOT || analyzeDOT
		out.Lattice = out.Lattice || analyzeLattice
		out.HTML = out.HTML || analyzeHTML

		r, err := analyzeOne(cmd.Context(), e, args[0])
		if err != nil {
			return err
		}
		if err := writeResult(analyzeOut, r, out); err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), r, analyzeShow)
		e.log.WithField("out", analyzeOut).Info("wrote relations")
		return nil
	},
}

func analyzeOne(ctx context.Context, e *env, path string) (*analysis.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, loadDiags, err := facts.Open(path)
	if err != nil {
		return nil, err
	}
	e.log.WithField("path", path).WithField("malformed_rows", loadDiags.Len()).Debug("loaded facts")
	return analysis.Run(ctx, analysis.Input{Store: s, LoadDiags: loadDiags}, e.opts, e.log)
}

// writeResult writes the relations, summary and diagnostics of r into dir,
// plus whichever graph outputs are enabled.
func writeResult(dir string, r *analysis.Result, out config.Output) error {
	if err := output.WriteRelations(dir, r); err != nil {
		return err
	}
	if err := output.WriteSummaryJSON(dir, r); err != nil {
		return err
	}
	if err := output.WriteDiagsJSON(dir, r.Diags); err != nil {
		return err
	}
	return writeGraphs(dir, r, out)
}

func writeGraphs(dir string, r *analysis.Result, out config.Output) error {
	var links render.Links
	if out.DOT {
		dot := render.GlobalCFGDOT(r, r.Name+" global CFG", render.NASA, render.Options{})
		if err := writeText(filepath.Join(dir, "globalcfg.dot"), dot); err != nil {
			return err
		}
		links.GlobalCFG = "globalcfg.dot"
	}
	if out.Lattice {
		cg := callgraph.BuildCallGraph(r)
		if err := writeText(filepath.Join(dir, "callgraph.dot"), latrender.DOT(cg, r.Name+" call graph")); err != nil {
			return err
		}
		links.CallGraph = "callgraph.dot"

		cfgDir := filepath.Join(dir, "cfg")
		funcs := callgraph.BuildCFG(r).Funcs
		labels := make([]string, len(funcs))
		for i, f := range funcs {
			labels[i] = f.Name
		}
		names := render.UniqueFileNames(labels)
		for i, f := range funcs {
			g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{f}}
			dot := latrender.DOTCFG(g, f.Name)
			if err := writeText(filepath.Join(cfgDir, names[i]+".dot"), dot); err != nil {
				return err
			}
		}
		links.CFG = "cfg/"
	}
	if out.HTML {
		f, err := os.Create(filepath.Join(dir, "index.html"))
		if err != nil {
			return fmt.Errorf("create index.html: %w", err)
		}
		defer f.Close()
		render.WriteIndexHTML(f, r, r.Name, links)
	}
	return nil
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}
