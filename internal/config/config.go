// Package config loads tacflow.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"tacflow/internal/diag"
)

// FileName is the config file searched for.
const FileName = "tacflow.toml"

// Config is the decoded tacflow.toml.
type Config struct {
	Analysis Analysis `toml:"analysis"`
	Output   Output   `toml:"output"`
	Log      Log      `toml:"log"`

	Path string `toml:"-"` // file the config came from; empty for defaults
}

type Analysis struct {
	Mode           string `toml:"mode"`
	Jobs           int    `toml:"jobs"`
	MaxStatements  int    `toml:"max_statements"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

type Output struct {
	DOT     bool `toml:"dot"`
	Lattice bool `toml:"lattice"`
	HTML    bool `toml:"html"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Analysis: Analysis{Mode: diag.ModeBestEffort.String()},
		Log:      Log{Level: "info"},
	}
}

// Find searches startDir and its parents for tacflow.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("config: resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("config: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads explicit when set, otherwise the nearest tacflow.toml above
// startDir, otherwise the defaults.
func Resolve(explicit, startDir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if _, err := diag.ParseMode(c.Analysis.Mode); err != nil {
		return fmt.Errorf("[analysis].mode: %w", err)
	}
	if c.Analysis.Jobs < 0 {
		return fmt.Errorf("[analysis].jobs must be >= 0, got %d", c.Analysis.Jobs)
	}
	if c.Analysis.MaxStatements < 0 {
		return fmt.Errorf("[analysis].max_statements must be >= 0, got %d", c.Analysis.MaxStatements)
	}
	if c.Analysis.MaxDiagnostics < 0 {
		return fmt.Errorf("[analysis].max_diagnostics must be >= 0, got %d", c.Analysis.MaxDiagnostics)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("[log].level: %w", err)
	}
	return nil
}

// Options converts the analysis section to diag.Options.
func (c Config) Options() (diag.Options, error) {
	mode, err := diag.ParseMode(c.Analysis.Mode)
	if err != nil {
		return diag.Options{}, err
	}
	return diag.Options{
		Mode:          mode,
		MaxStatements: c.Analysis.MaxStatements,
		MaxDiags:      c.Analysis.MaxDiagnostics,
	}, nil
}
