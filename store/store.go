// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package store

// Snapshot is a plain, JSON-representable copy of a store's state at an
// instant. Snapshots have no identity: the inspector compares them only
// structurally. Values are restricted to what encoding/json produces
// when unmarshaling into any: bool, float64, string, nil, []any, and
// map[string]any.
type Snapshot map[string]any

// Clone returns a deep structural copy of the snapshot. Mutating the
// copy never affects the original. A nil snapshot clones to nil.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	copied := make(Snapshot, len(s))
	for key, value := range s {
		copied[key] = cloneValue(value)
	}
	return copied
}

// cloneValue deep-copies a single JSON-representable value. Scalars are
// immutable and returned as-is; maps and slices are copied recursively.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, element := range typed {
			copied[key] = cloneValue(element)
		}
		return copied
	case Snapshot:
		return map[string]any(typed.Clone())
	case []any:
		copied := make([]any, len(typed))
		for index, element := range typed {
			copied[index] = cloneValue(element)
		}
		return copied
	default:
		return value
	}
}

// Adapter is the minimal contract a mutable, observable state container
// must satisfy to be bridged to an inspector. The container itself — how
// it constructs proxies, notifies views, or produces snapshots — is
// outside this package's concern.
//
// Adapter implementations must invoke OnMutation callbacks after the
// mutation has taken effect, synchronously, in registration order, and
// must not hold internal locks while doing so (callbacks read the store
// via Read).
type Adapter interface {
	// Read returns a snapshot of the current state. The returned value
	// must be safe to retain: mutations after Read must not affect it.
	Read() Snapshot

	// Write overwrites the state with the given snapshot and notifies
	// mutation callbacks.
	Write(Snapshot)

	// OnMutation registers a callback invoked after every mutation.
	// The returned function removes the registration. Idempotent.
	OnMutation(callback func()) (unsubscribe func())
}
