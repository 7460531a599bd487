package main

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"

	"tacflow/internal/analysis"
	"tacflow/internal/output"
)

var (
	batchOut string
	batchDOT bool
)

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output directory; one subdirectory per contract (required)")
	batchCmd.Flags().Int("jobs", 0, "contracts analysed in parallel (0 = GOMAXPROCS)")
	batchCmd.Flags().BoolVar(&batchDOT, "dot", false, "also write each global CFG as DOT")
	batchCmd.Flags().Int("max-statements", 0, "abandon contracts with more statements (0 = unlimited)")
	batchCmd.Flags().Int("max-diagnostics", 0, "cap on recorded violations per contract (0 = unlimited)")
	batchCmd.MarkFlagRequired("out")
}

var batchCmd = &cobra.Command{
	Use:   "batch <root>",
	Short: "Analyse every facts directory and snapshot under root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		jobs, err := analysis.FindJobs(args[0])
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return fmt.Errorf("no facts directories or snapshots under %s", args[0])
		}
		out := e.cfg.Output
		out.DOT = out.DOT || batchDOT

		var written atomic.Int64
		emit := func(r *analysis.Result) error {
			if err := writeResult(filepath.Join(batchOut, filepath.FromSlash(r.Name)), r, out); err != nil {
				return err
			}
			written.Add(1)
			return nil
		}
		e.log.WithField("contracts", len(jobs)).WithField("jobs", e.cfg.Analysis.Jobs).Info("batch start")
		outcomes, err := analysis.RunBatch(cmd.Context(), jobs, e.opts, e.cfg.Analysis.Jobs, e.log, emit)
		if werr := output.WriteBatchJSON(batchOut, outcomes); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			return err
		}

		failed, degraded := 0, 0
		w := cmd.OutOrStdout()
		for _, oc := range outcomes {
			switch {
			case oc.Err != nil:
				failed++
				fmt.Fprintf(w, "%s: %s %v\n", oc.Job.Name, structuralColor.Sprint("failed"), oc.Err)
			case oc.Degraded:
				degraded++
			}
		}
		fmt.Fprintf(w, "%d contracts, %d written, %s, %s\n", len(outcomes), written.Load(),
			degradedColor.Sprintf("%d degraded", degraded), structuralColor.Sprintf("%d failed", failed))
		return nil
	},
}
