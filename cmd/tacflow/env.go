package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tacflow/internal/config"
	"tacflow/internal/diag"
)

// env is the resolved configuration of one command invocation.
type env struct {
	cfg   config.Config
	opts  diag.Options
	log   *logrus.Logger
	color bool
}

// loadEnv merges tacflow.toml with the persistent flags. Flags win.
func loadEnv(cmd *cobra.Command) (*env, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Resolve(path, ".")
	if err != nil {
		return nil, err
	}
	if mode, _ := flags.GetString("mode"); mode != "" {
		cfg.Analysis.Mode = mode
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if flags.Changed("max-statements") {
		cfg.Analysis.MaxStatements, _ = flags.GetInt("max-statements")
	}
	if flags.Changed("max-diagnostics") {
		cfg.Analysis.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	if flags.Changed("jobs") {
		cfg.Analysis.Jobs, _ = flags.GetInt("jobs")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	colorFlag, _ := flags.GetString("color")
	var useColor bool
	switch colorFlag {
	case "on":
		useColor = true
	case "off":
		useColor = false
	case "auto":
		useColor = isTerminal(os.Stdout)
	default:
		return nil, fmt.Errorf("--color: want auto, on or off, got %q", colorFlag)
	}
	color.NoColor = !useColor

	e := &env{cfg: cfg, opts: opts, log: newLogger(cfg.Log.Level), color: useColor}
	if cfg.Path != "" {
		e.log.WithField("config", cfg.Path).Debug("loaded config")
	}
	return e, nil
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		ForceColors:      isTerminal(os.Stderr),
	})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
