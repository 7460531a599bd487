package main

import (
	"github.com/spf13/cobra"

	"tacflow/internal/config"
)

var renderOut string

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output directory (required)")
	renderCmd.MarkFlagRequired("out")
}

var renderCmd = &cobra.Command{
	Use:   "render <facts-dir|snapshot.mp>",
	Short: "Write the global CFG, lattice graphs and an HTML index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		r, err := analyzeOne(cmd.Context(), e, args[0])
		if err != nil {
			return err
		}
		if err := writeGraphs(renderOut, r, config.Output{DOT: true, Lattice: true, HTML: true}); err != nil {
			return err
		}
		e.log.WithField("out", renderOut).Info("wrote graphs")
		return nil
	},
}
