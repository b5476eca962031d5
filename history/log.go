// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package history maintains the lifted-state log for a debugged
// application: the committed baseline snapshot plus every recorded
// action and the full state it produced. The monitor reads the log to
// render its timeline, jumps read past states out of it, and commit or
// reset rewrite its baseline. The log is the source of truth the
// inspector side keeps; the application itself only ever holds the
// current state.
package history

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/rewind-foundation/rewind/inspector"
	"github.com/rewind-foundation/rewind/lib/clock"
	"github.com/rewind-foundation/rewind/lib/codec"
	"github.com/rewind-foundation/rewind/store"
)

// InitLabel is the label of the synthetic action at index 0 of every
// lifted state. It represents the committed baseline rather than a
// recorded mutation.
const InitLabel = "@@INIT"

// Entry is one recorded action: the label the application supplied and
// the complete state after the mutation.
type Entry struct {
	// ID is the entry's position-independent identifier. IDs increase
	// monotonically within a log and survive folding.
	ID int64 `cbor:"id"`

	// Label names the mutation, e.g. "increment" or "update".
	Label string `cbor:"label"`

	// Timestamp is milliseconds since the Unix epoch at record time.
	Timestamp int64 `cbor:"timestamp"`

	// State is the full snapshot after the action.
	State store.Snapshot `cbor:"state"`

	// Digest is a short content hash of State, used to spot identical
	// states in the timeline.
	Digest string `cbor:"digest"`
}

// Options configures a Log.
type Options struct {
	// Clock supplies entry timestamps. Defaults to clock.Real().
	Clock clock.Clock

	// Limit caps the number of retained entries. When a new entry
	// would exceed the limit, the oldest entry folds into the
	// baseline: its state becomes the new baseline and the action is
	// forgotten. Zero means unlimited.
	Limit int
}

// Log is the lifted-state log for one session. Safe for concurrent
// use.
type Log struct {
	mu       sync.Mutex
	clock    clock.Clock
	limit    int
	baseline store.Snapshot
	entries  []Entry
	nextID   int64
}

// NewLog returns a Log whose baseline is a deep copy of initial.
func NewLog(initial store.Snapshot, options Options) *Log {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &Log{
		clock:    options.Clock,
		limit:    options.Limit,
		baseline: initial.Clone(),
		nextID:   1,
	}
}

// Init discards all recorded actions and sets a new baseline. This is
// what an application's INIT message does: the session starts over
// from the given state.
func (l *Log) Init(state store.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseline = state.Clone()
	l.entries = nil
}

// Append records an action and the state it produced, returning the
// new entry. If the log is at its limit, the oldest entry folds into
// the baseline first.
func (l *Log) Append(label string, state store.Snapshot) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:        l.nextID,
		Label:     label,
		Timestamp: l.clock.Now().UnixMilli(),
		State:     state.Clone(),
		Digest:    StateDigest(state),
	}
	l.nextID++

	l.entries = append(l.entries, entry)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.baseline = l.entries[0].State
		l.entries = l.entries[1:]
	}
	return entry
}

// Len returns the number of recorded actions, excluding the baseline.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Head returns the most recent state: the last entry's state, or the
// baseline when no actions are recorded. The returned snapshot is a
// deep copy.
func (l *Log) Head() store.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headLocked().Clone()
}

func (l *Log) headLocked() store.Snapshot {
	if len(l.entries) == 0 {
		return l.baseline
	}
	return l.entries[len(l.entries)-1].State
}

// StateAt returns a deep copy of the state at the given timeline
// index. Index 0 is the baseline; index i >= 1 is the state after the
// i-th recorded action.
func (l *Log) StateAt(index int) (store.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index > len(l.entries) {
		return nil, fmt.Errorf("history: index %d out of range [0, %d]", index, len(l.entries))
	}
	if index == 0 {
		return l.baseline.Clone(), nil
	}
	return l.entries[index-1].State.Clone(), nil
}

// Commit makes the current head the new baseline and drops all
// recorded actions. Returns the new baseline as a deep copy.
func (l *Log) Commit() store.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseline = l.headLocked()
	l.entries = nil
	return l.baseline.Clone()
}

// Reset drops all recorded actions, rolling the session back to the
// baseline. Returns the baseline as a deep copy.
func (l *Log) Reset() store.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	return l.baseline.Clone()
}

// Entries returns a copy of the recorded actions in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lifted renders the log as an inspector lifted state: action 0 is the
// synthetic baseline action, followed by every recorded action, with
// computed states aligned index-for-index.
func (l *Log) Lifted() inspector.LiftedState {
	l.mu.Lock()
	defer l.mu.Unlock()

	lifted := inspector.LiftedState{
		ActionsByID: make([]inspector.LiftedAction, 0, len(l.entries)+1),
		ComputedStates: make([]inspector.ComputedState, 0, len(l.entries)+1),
	}
	lifted.ActionsByID = append(lifted.ActionsByID, inspector.LiftedAction{
		ID:     0,
		Label:  InitLabel,
		Digest: StateDigest(l.baseline),
	})
	lifted.ComputedStates = append(lifted.ComputedStates, inspector.ComputedState{State: l.baseline.Clone()})

	for _, entry := range l.entries {
		lifted.ActionsByID = append(lifted.ActionsByID, inspector.LiftedAction{
			ID:        entry.ID,
			Label:     entry.Label,
			Timestamp: entry.Timestamp,
			Digest:    entry.Digest,
		})
		lifted.ComputedStates = append(lifted.ComputedStates, inspector.ComputedState{State: entry.State.Clone()})
	}
	return lifted
}

// LoadLifted replaces the log's contents from a lifted state, as
// carried by an IMPORT_STATE dispatch. The first computed state
// becomes the baseline; the rest become entries, paired with their
// actions when the action list lines up and given synthetic labels
// otherwise.
func (l *Log) LoadLifted(lifted inspector.LiftedState) error {
	if len(lifted.ComputedStates) == 0 {
		return fmt.Errorf("history: lifted state carries no computed states")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.baseline = lifted.ComputedStates[0].State.Clone()
	l.entries = nil
	for i, computed := range lifted.ComputedStates[1:] {
		entry := Entry{
			ID:     l.nextID,
			Label:  "imported",
			State:  computed.State.Clone(),
			Digest: StateDigest(computed.State),
		}
		l.nextID++
		// Action index i+1 pairs with computed state i+1 when both
		// slices have the DevTools shape.
		if i+1 < len(lifted.ActionsByID) {
			action := lifted.ActionsByID[i+1]
			if action.Label != "" {
				entry.Label = action.Label
			}
			entry.Timestamp = action.Timestamp
		}
		l.entries = append(l.entries, entry)
	}
	return nil
}

// stateDomainKey is the BLAKE3 key for snapshot digests. ASCII domain
// name zero-padded to 32 bytes, same scheme as archive checksums.
var stateDomainKey = [32]byte{
	'r', 'e', 'w', 'i', 'n', 'd', '.', 'h', 'i', 's', 't', 'o', 'r', 'y', '.',
	's', 't', 'a', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// StateDigest returns a short hex digest of a snapshot. The snapshot
// is serialized with deterministic CBOR so equal states always produce
// equal digests regardless of map iteration order.
func StateDigest(state store.Snapshot) string {
	encoded, err := codec.Marshal(map[string]any(state))
	if err != nil {
		// Snapshots come from JSON and CBOR decoding, both of which
		// only produce encodable values.
		panic("history: snapshot encoding failed: " + err.Error())
	}
	hasher, err := blake3.NewKeyed(stateDomainKey[:])
	if err != nil {
		panic("history: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(encoded)
	return hex.EncodeToString(hasher.Sum(nil)[:6])
}
