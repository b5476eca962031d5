// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Rewind binaries.
//
// Configuration is loaded from a single file specified by:
//   - REWIND_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Files ending in .yaml or .yml are parsed as YAML; .json and .jsonc
// files are parsed as JSON with comments. The file may contain
// environment-specific sections (development, staging, production)
// that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Rewind.
type Config struct {
	// Environment identifies the deployment type (development,
	// staging, production).
	Environment Environment `yaml:"environment"`

	// Monitor configures the monitor server and TUI.
	Monitor MonitorConfig `yaml:"monitor"`

	// Bridge configures application-side bridge defaults.
	Bridge BridgeConfig `yaml:"bridge"`

	// Per-environment overrides, applied after the base config loads.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Monitor *MonitorConfig `yaml:"monitor,omitempty"`
	Bridge  *BridgeConfig  `yaml:"bridge,omitempty"`
}

// MonitorConfig configures the monitor server and TUI.
type MonitorConfig struct {
	// Listen is the address applications connect to. A value
	// containing a path separator binds a unix socket; anything else
	// binds TCP. Default: 127.0.0.1:8650
	Listen string `yaml:"listen"`

	// HistoryLimit caps retained actions per session; the oldest
	// action folds into the baseline when exceeded. Zero means
	// unlimited. Default: 500
	HistoryLimit int `yaml:"history_limit"`

	// ExportDir is where session archives are written.
	// Default: ${HOME}/.local/share/rewind/exports
	ExportDir string `yaml:"export_dir"`

	// LogFile, when set, receives JSON log records in addition to the
	// TUI display.
	LogFile string `yaml:"log_file"`
}

// BridgeConfig configures application-side bridge defaults.
type BridgeConfig struct {
	// ActionLabel is the descriptor sent with every forwarded
	// mutation. Default: update
	ActionLabel string `yaml:"action_label"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file; they exist to give every
// field a sensible zero-value, not as a fallback - the config file is
// required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Monitor: MonitorConfig{
			Listen:       "127.0.0.1:8650",
			HistoryLimit: 500,
			ExportDir:    "${HOME}/.local/share/rewind/exports",
		},
		Bridge: BridgeConfig{
			ActionLabel: "update",
		},
	}
}

// Load loads configuration from the REWIND_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if REWIND_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("REWIND_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("REWIND_CONFIG environment variable not set; " +
			"set it to the path of your rewind.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile parses a single configuration file, merging into the
// current config. JSONC files are converted to plain JSON first; YAML
// parses the result since JSON is a YAML subset.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Monitor != nil {
		if overrides.Monitor.Listen != "" {
			c.Monitor.Listen = overrides.Monitor.Listen
		}
		if overrides.Monitor.HistoryLimit != 0 {
			c.Monitor.HistoryLimit = overrides.Monitor.HistoryLimit
		}
		if overrides.Monitor.ExportDir != "" {
			c.Monitor.ExportDir = overrides.Monitor.ExportDir
		}
		if overrides.Monitor.LogFile != "" {
			c.Monitor.LogFile = overrides.Monitor.LogFile
		}
	}

	if overrides.Bridge != nil {
		if overrides.Bridge.ActionLabel != "" {
			c.Bridge.ActionLabel = overrides.Bridge.ActionLabel
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Monitor.Listen = expandVars(c.Monitor.Listen, vars)
	c.Monitor.ExportDir = expandVars(c.Monitor.ExportDir, vars)
	c.Monitor.LogFile = expandVars(c.Monitor.LogFile, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
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

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Monitor.Listen == "" {
		errs = append(errs, fmt.Errorf("monitor.listen is required"))
	}

	if c.Monitor.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("monitor.history_limit must not be negative"))
	}

	if c.Bridge.ActionLabel == "" {
		errs = append(errs, fmt.Errorf("bridge.action_label is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureExportDir creates the export directory if it does not exist.
func (c *Config) EnsureExportDir() error {
	if c.Monitor.ExportDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Monitor.ExportDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Monitor.ExportDir, err)
	}
	return nil
}
