package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tacflow/internal/facts"
)

// Version information, overridable with -ldflags.
var (
	Version   = "0.3.0"
	GitCommit = ""
	BuildDate = ""
)

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch versionFormat {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"tool":            "tacflow",
				"version":         Version,
				"git_commit":      GitCommit,
				"build_date":      BuildDate,
				"go":              runtime.Version(),
				"snapshot_schema": facts.SnapshotSchema,
			})
		case "pretty":
			fmt.Fprintf(w, "tacflow %s (%s, snapshot schema %d)\n",
				color.New(color.FgGreen, color.Bold).Sprint(Version), runtime.Version(), facts.SnapshotSchema)
			if GitCommit != "" {
				fmt.Fprintf(w, "commit %s\n", GitCommit)
			}
			if BuildDate != "" {
				fmt.Fprintf(w, "built  %s\n", BuildDate)
			}
			return nil
		}
		return fmt.Errorf("unknown format %q", versionFormat)
	},
}
