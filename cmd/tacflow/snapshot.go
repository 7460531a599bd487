package main

import (
	"github.com/spf13/cobra"

	"tacflow/internal/facts"
)

var snapshotOut string

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "snapshot file to write (required)")
	snapshotCmd.MarkFlagRequired("out")
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <facts-dir>",
	Short: "Pack a facts directory into a msgpack snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		s, diags, err := facts.LoadDir(args[0])
		if err != nil {
			return err
		}
		for _, d := range diags.Items() {
			e.log.Warn(d.String())
		}
		if err := facts.WriteSnapshot(snapshotOut, s); err != nil {
			return err
		}
		st := s.Stats()
		e.log.WithField("out", snapshotOut).
			WithField("statements", st.Statements).
			WithField("blocks", st.Blocks).
			WithField("skipped_rows", diags.Len()).
			Info("wrote snapshot")
		return nil
	},
}
