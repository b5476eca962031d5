// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// rewind-history inspects session archives exported by the monitor:
// it lists the recorded actions, prints individual snapshots, and
// verifies the archive checksum as a side effect of decoding.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/rewind-foundation/rewind/history"
	"github.com/rewind-foundation/rewind/lib/archive"
	"github.com/rewind-foundation/rewind/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var stateIndex int
	var asJSON bool

	flagSet := pflag.NewFlagSet("rewind-history", pflag.ContinueOnError)
	flagSet.IntVar(&stateIndex, "state", -1, "print the snapshot at this timeline index (0: baseline)")
	flagSet.BoolVar(&asJSON, "json", false, "dump the full history as JSON")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("rewind-history")
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

	args := flagSet.Args()
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one archive path, got %d arguments", len(args))
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	info, err := archive.Inspect(data)
	if err != nil {
		return err
	}
	app, exportedAt, baseline, entries, err := history.ReadExport(data)
	if err != nil {
		return err
	}

	if stateIndex >= 0 {
		return printState(stateIndex, baseline, entries)
	}
	if asJSON {
		return printJSON(app, exportedAt, baseline, entries)
	}

	fmt.Printf("app:         %s\n", app)
	fmt.Printf("exported:    %s\n", time.UnixMilli(exportedAt).Local().Format(time.RFC3339))
	fmt.Printf("compression: %s (%d -> %d bytes)\n", info.Compression, info.UncompressedSize, info.CompressedSize)
	fmt.Printf("checksum:    %s\n", archive.FormatChecksum(info.Checksum))
	fmt.Printf("actions:     %d\n\n", len(entries))

	fmt.Printf("  0  %s  %s\n", "        ", history.InitLabel)
	for i, entry := range entries {
		fmt.Printf("%3d  %s  %s %s\n",
			i+1,
			time.UnixMilli(entry.Timestamp).Local().Format("15:04:05"),
			entry.Label,
			entry.Digest,
		)
	}
	return nil
}

// printState prints the snapshot at the given timeline index: 0 is the
// baseline, i >= 1 is the state after the i-th action.
func printState(index int, baseline map[string]any, entries []history.Entry) error {
	if index > len(entries) {
		return fmt.Errorf("index %d out of range [0, %d]", index, len(entries))
	}
	state := baseline
	if index > 0 {
		state = entries[index-1].State
	}
	rendered, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(rendered))
	return nil
}

// printJSON dumps the whole history document as JSON for scripting.
func printJSON(app string, exportedAt int64, baseline map[string]any, entries []history.Entry) error {
	document := map[string]any{
		"app":         app,
		"exported_at": exportedAt,
		"baseline":    baseline,
		"entries":     entries,
	}
	rendered, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(rendered))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Rewind history inspector — examine exported session archives.

Usage:
  rewind-history [flags] <archive>

Examples:
  # List the recorded actions
  rewind-history counter-20260823-101500.rewind

  # Print the snapshot after the third action
  rewind-history --state 3 counter-20260823-101500.rewind

  # Dump everything as JSON
  rewind-history --json counter-20260823-101500.rewind

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
