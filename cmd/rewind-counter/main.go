// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// rewind-counter is a minimal Rewind demo application: an in-memory
// counter that increments on a timer, bridged to a monitor. Run a
// rewind-monitor first, then point this at it and watch the timeline
// fill; jumps and resets from the monitor move the printed counter.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rewind-foundation/rewind/bridge"
	"github.com/rewind-foundation/rewind/lib/clock"
	"github.com/rewind-foundation/rewind/lib/version"
	"github.com/rewind-foundation/rewind/remote"
	"github.com/rewind-foundation/rewind/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var connect string
	var name string
	var interval time.Duration
	var limit int

	flagSet := pflag.NewFlagSet("rewind-counter", pflag.ContinueOnError)
	flagSet.StringVar(&connect, "connect", "127.0.0.1:8650", "monitor address (host:port or unix socket path)")
	flagSet.StringVar(&name, "name", "counter", "application name shown in the monitor")
	flagSet.DurationVar(&interval, "interval", 2*time.Second, "time between increments")
	flagSet.IntVar(&limit, "count", 0, "stop after this many increments (0: run until interrupted)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("rewind-counter")
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	memory := store.NewMemory(store.Snapshot{"count": float64(0)})

	// Print every state the store passes through, whether the change
	// came from the local ticker or from the monitor time-traveling.
	memory.OnMutation(func() {
		state := memory.Read()
		fmt.Printf("count = %v\n", state["count"])
	})

	connector := &remote.Connector{Address: connect, Logger: logger}
	b, err := bridge.Attach(memory, bridge.Options{
		Connector:   connector,
		Name:        name,
		ActionLabel: "increment",
		Development: true,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer b.Detach()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ticker := clock.Real()
	increments := 0
	for {
		select {
		case received := <-signals:
			logger.Info("shutting down", "signal", received.String())
			return nil
		case <-ticker.After(interval):
		}

		memory.Update(func(state store.Snapshot) {
			count, _ := state["count"].(float64)
			state["count"] = count + 1
		})

		increments++
		if limit > 0 && increments >= limit {
			return nil
		}
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Rewind demo counter — increments a bridged in-memory store.

Usage:
  rewind-counter [flags]

Examples:
  # Connect to a local monitor on the default port
  rewind-counter

  # Faster increments against a unix-socket monitor
  rewind-counter --connect /tmp/rewind.sock --interval 500ms

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
