// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"fmt"

	"github.com/rewind-foundation/rewind/lib/archive"
	"github.com/rewind-foundation/rewind/lib/codec"
	"github.com/rewind-foundation/rewind/store"
)

// exportDocument is the CBOR payload of an exported session archive.
type exportDocument struct {
	// App is the session name the log was exported under.
	App string `cbor:"app"`

	// ExportedAt is milliseconds since the Unix epoch at export time.
	ExportedAt int64 `cbor:"exported_at"`

	// Baseline is the committed baseline snapshot.
	Baseline store.Snapshot `cbor:"baseline"`

	// Entries are the recorded actions in order.
	Entries []Entry `cbor:"entries"`
}

// Export serializes the log into an archive: deterministic CBOR inside
// the checksummed container. The app name is recorded so the archive
// identifies which session it came from.
func (l *Log) Export(app string) ([]byte, error) {
	l.mu.Lock()
	document := exportDocument{
		App:        app,
		ExportedAt: l.clock.Now().UnixMilli(),
		Baseline:   l.baseline.Clone(),
		Entries:    make([]Entry, len(l.entries)),
	}
	copy(document.Entries, l.entries)
	l.mu.Unlock()

	payload, err := codec.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("history: encoding export: %w", err)
	}
	encoded, err := archive.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return encoded, nil
}

// Import replaces the log's contents from an archive produced by
// Export and returns the app name recorded in it. Entry IDs are
// reassigned so they stay monotonic within this log.
func (l *Log) Import(data []byte) (string, error) {
	payload, _, err := archive.Decode(data)
	if err != nil {
		return "", fmt.Errorf("history: %w", err)
	}

	var document exportDocument
	if err := codec.Unmarshal(payload, &document); err != nil {
		return "", fmt.Errorf("history: decoding export: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseline = document.Baseline.Clone()
	l.entries = nil
	for _, entry := range document.Entries {
		entry.ID = l.nextID
		l.nextID++
		entry.State = entry.State.Clone()
		l.entries = append(l.entries, entry)
	}
	return document.App, nil
}

// ReadExport decodes an archive produced by Export without loading it
// into a log. The history CLI uses this to list archive contents.
func ReadExport(data []byte) (app string, exportedAt int64, baseline store.Snapshot, entries []Entry, err error) {
	payload, _, err := archive.Decode(data)
	if err != nil {
		return "", 0, nil, nil, fmt.Errorf("history: %w", err)
	}
	var document exportDocument
	if err := codec.Unmarshal(payload, &document); err != nil {
		return "", 0, nil, nil, fmt.Errorf("history: decoding export: %w", err)
	}
	return document.App, document.ExportedAt, document.Baseline, document.Entries, nil
}
