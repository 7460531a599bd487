package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "tacflow",
	Short:         "Control-flow reconstruction over lifted EVM facts",
	Long:          `tacflow derives block boundaries, variable ownership, call/return bindings and the global CFG from three-address-code fact relations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.Version = Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to tacflow.toml (default: nearest one above the working directory)")
	rootCmd.PersistentFlags().String("mode", "", "violation handling (best-effort|strict)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		newLogger("error").Error(err)
		stop()
		os.Exit(1)
	}
}
