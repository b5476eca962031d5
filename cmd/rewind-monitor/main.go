// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// rewind-monitor is the inspector side of Rewind: it listens for
// application connections, records each session's action history, and
// provides an interactive terminal UI for time travel — jumping the
// application to any recorded state, committing a new baseline,
// resetting, and exporting session archives.
//
// Two modes of operation:
//
// TUI mode (default): runs the full-screen timeline interface. Requires
// a terminal.
//
// Headless mode (--headless): runs only the server with structured
// logging to stderr. Useful when the monitor runs as a background
// service and sessions are inspected later from exported archives.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rewind-foundation/rewind/lib/clock"
	"github.com/rewind-foundation/rewind/lib/config"
	"github.com/rewind-foundation/rewind/lib/monitorui"
	"github.com/rewind-foundation/rewind/lib/version"
	"github.com/rewind-foundation/rewind/remote"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listen string
	var exportDir string
	var historyLimit int
	var headless bool
	var logOutput string

	flagSet := pflag.NewFlagSet("rewind-monitor", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to rewind config file (default: $REWIND_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "listen address (overrides config)")
	flagSet.StringVar(&exportDir, "export-dir", "", "directory for exported archives (overrides config)")
	flagSet.IntVar(&historyLimit, "history-limit", -1, "max retained actions per session, 0 for unlimited (overrides config)")
	flagSet.BoolVar(&headless, "headless", false, "run the server without the TUI")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to TUI display)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Rewind binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("rewind-monitor")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Monitor.Listen = listen
	}
	if exportDir != "" {
		cfg.Monitor.ExportDir = exportDir
	}
	if historyLimit >= 0 {
		cfg.Monitor.HistoryLimit = historyLimit
	}
	if logOutput != "" {
		cfg.Monitor.LogFile = logOutput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if headless {
		return runHeadless(cfg)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use --headless to run without the TUI")
	}
	return runTUI(cfg)
}

// loadConfig resolves the configuration: an explicit --config path,
// then REWIND_CONFIG, then built-in defaults. Unlike most Rewind
// services the monitor works without any config file, so absence is
// not an error here.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("REWIND_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// runHeadless runs only the server, logging to stderr, until SIGINT or
// SIGTERM.
func runHeadless(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	server := &remote.Server{
		Address:      cfg.Monitor.Listen,
		HistoryLimit: cfg.Monitor.HistoryLimit,
		Logger:       logger,
		Clock:        clock.Real(),
	}
	if err := server.Start(context.Background()); err != nil {
		return err
	}
	defer server.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals
	logger.Info("shutting down", "signal", received.String())
	return nil
}

// runTUI runs the server with the timeline interface. Background
// logging goes to the optional log file, never to stderr, which would
// corrupt the alt-screen display.
func runTUI(cfg *config.Config) error {
	logWriter := io.Writer(io.Discard)
	if cfg.Monitor.LogFile != "" {
		file, err := os.Create(cfg.Monitor.LogFile)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", cfg.Monitor.LogFile, err)
		}
		defer file.Close()
		logWriter = file
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

	server := &remote.Server{
		Address:      cfg.Monitor.Listen,
		HistoryLimit: cfg.Monitor.HistoryLimit,
		Logger:       logger,
		Clock:        clock.Real(),
	}

	model := monitorui.NewModel(server, cfg.Monitor.ExportDir)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Session updates arrive on connection goroutines; program.Send is
	// safe to call from them and wakes the bubbletea loop.
	server.OnSessionUpdate = func(*remote.Session) {
		program.Send(monitorui.SessionUpdateMsg{})
	}

	if err := server.Start(context.Background()); err != nil {
		return err
	}
	defer server.Stop()

	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Rewind monitor — record and time-travel application state.

Applications connect with the rewind remote connector (see
cmd/rewind-counter for a minimal example). Every mutation they forward
appears in the timeline; jumping, committing, and resetting push the
corresponding state back into the running application.

Usage:
  rewind-monitor [flags]

Examples:
  # Run the TUI on the default address
  rewind-monitor

  # Listen on a unix socket, keep at most 200 actions per session
  rewind-monitor --listen /tmp/rewind.sock --history-limit 200

  # Headless recording server
  rewind-monitor --headless --listen 127.0.0.1:8650

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
