// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the user configuration for why.
type Config struct {
	// Rules configures the rules document.
	Rules RulesConfig `yaml:"rules"`

	// History configures the pass history database.
	History HistoryConfig `yaml:"history"`

	// Watch configures the live watch view.
	Watch WatchConfig `yaml:"watch"`

	// Color controls colored output: "auto", "always", or "never".
	// Default: auto (color when stdout is a terminal).
	Color string `yaml:"color"`
}

// RulesConfig configures the rules document.
type RulesConfig struct {
	// Path is a custom rules document (YAML or JSONC). Empty means
	// the built-in document.
	Path string `yaml:"path"`
}

// HistoryConfig configures the pass history database.
type HistoryConfig struct {
	// Enabled records each scan in the history database.
	// Default: true.
	Enabled *bool `yaml:"enabled"`

	// Path overrides the database location.
	// Default: ${XDG_DATA_HOME}/why/history.db
	Path string `yaml:"path"`

	// Retention is how long recorded passes are kept. Passes older
	// than this are removed by `why history --prune` with no explicit
	// duration. Accepts Go duration syntax ("720h").
	// Default: 720h (30 days).
	Retention string `yaml:"retention"`
}

// WatchConfig configures the live watch view.
type WatchConfig struct {
	// Interval is the refresh cadence. Accepts Go duration syntax.
	// Default: 2s.
	Interval string `yaml:"interval"`
}

// Default returns the default configuration. These defaults are the
// complete behavior of a machine with no config file.
func Default() *Config {
	enabled := true
	return &Config{
		Rules: RulesConfig{},
		History: HistoryConfig{
			Enabled:   &enabled,
			Retention: "720h",
		},
		Watch: WatchConfig{
			Interval: "2s",
		},
		Color: "auto",
	}
}

// Load loads configuration from WHY_CONFIG if set, otherwise from
// $XDG_CONFIG_HOME/why/config.yaml. A missing default file yields
// Default() rather than an error; a missing WHY_CONFIG file is an
// error, because the user asked for it explicitly.
func Load() (*Config, error) {
	if path := os.Getenv("WHY_CONFIG"); path != "" {
		return LoadFile(path)
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		configHome = filepath.Join(home, ".config")
	}

	path := filepath.Join(configHome, "why", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth below the flag layer.
// Environment variables do not override config values; the only
// expansion performed is ${HOME} and similar path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Rules.Path = expandVars(c.Rules.Path, vars)
	c.History.Path = expandVars(c.History.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.RetentionDuration(); err != nil {
		errs = append(errs, fmt.Errorf("history.retention: %w", err))
	}
	if _, err := c.WatchInterval(); err != nil {
		errs = append(errs, fmt.Errorf("watch.interval: %w", err))
	}

	switch c.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("color must be one of: auto, always, never (got %q)", c.Color))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// HistoryEnabled reports whether scans should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// RetentionDuration parses History.Retention.
func (c *Config) RetentionDuration() (time.Duration, error) {
	if c.History.Retention == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.History.Retention)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative (got %s)", d)
	}
	return d, nil
}

// WatchInterval parses Watch.Interval.
func (c *Config) WatchInterval() (time.Duration, error) {
	if c.Watch.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.Interval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive (got %s)", d)
	}
	return d, nil
}
