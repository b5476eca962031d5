// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "rewind.yaml", `
environment: development
monitor:
  listen: 127.0.0.1:9000
  history_limit: 100
bridge:
  action_label: mutation
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Monitor.Listen != "127.0.0.1:9000" {
		t.Fatalf("listen = %q", cfg.Monitor.Listen)
	}
	if cfg.Monitor.HistoryLimit != 100 {
		t.Fatalf("history_limit = %d", cfg.Monitor.HistoryLimit)
	}
	if cfg.Bridge.ActionLabel != "mutation" {
		t.Fatalf("action_label = %q", cfg.Bridge.ActionLabel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadFile_JSONCWithComments(t *testing.T) {
	path := writeConfig(t, "rewind.jsonc", `{
  // local development setup
  "environment": "development",
  "monitor": {
    "listen": "/tmp/rewind.sock", // unix socket
  },
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Monitor.Listen != "/tmp/rewind.sock" {
		t.Fatalf("listen = %q", cfg.Monitor.Listen)
	}
	// Unset fields keep their defaults.
	if cfg.Monitor.HistoryLimit != 500 {
		t.Fatalf("history_limit = %d, want default 500", cfg.Monitor.HistoryLimit)
	}
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "rewind.yaml", `
environment: production
monitor:
  listen: 127.0.0.1:9000
production:
  monitor:
    listen: 127.0.0.1:9100
    history_limit: 50
development:
  monitor:
    listen: 127.0.0.1:9200
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Monitor.Listen != "127.0.0.1:9100" {
		t.Fatalf("listen = %q, want production override", cfg.Monitor.Listen)
	}
	if cfg.Monitor.HistoryLimit != 50 {
		t.Fatalf("history_limit = %d, want 50", cfg.Monitor.HistoryLimit)
	}
}

func TestLoadFile_ExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := writeConfig(t, "rewind.yaml", `
environment: development
monitor:
  export_dir: ${HOME}/exports
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Monitor.ExportDir != "/home/tester/exports" {
		t.Fatalf("export_dir = %q", cfg.Monitor.ExportDir)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv("REWIND_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REWIND_CONFIG")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Environment: "lab",
		Monitor:     MonitorConfig{Listen: "", HistoryLimit: -1},
		Bridge:      BridgeConfig{ActionLabel: ""},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	message := err.Error()
	for _, want := range []string{"invalid environment", "monitor.listen", "history_limit", "action_label"} {
		if !strings.Contains(message, want) {
			t.Fatalf("error %q missing %q", message, want)
		}
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
