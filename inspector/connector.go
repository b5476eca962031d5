// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"sync"

	"github.com/rewind-foundation/rewind/store"
)

// Options configures a connection to an inspector.
type Options struct {
	// Name identifies the application instance in the inspector UI.
	Name string
}

// Connector is the entry point an installed inspector exposes to host
// applications. Absence of a connector is expected and must not be
// treated as an error: the bridge degrades to a no-op when Locate
// finds nothing and no connector was injected explicitly.
type Connector interface {
	// Connect establishes an inspector session and returns its handle.
	Connect(options Options) (Handle, error)
}

// Handle is one established inspector session.
type Handle interface {
	// Init seeds (or re-baselines) the inspector's action log with the
	// given state, without adding an action entry.
	Init(state store.Snapshot)

	// Send records a new action: label describes what kind of change
	// produced the snapshot, state is the post-mutation snapshot.
	Send(label string, state store.Snapshot)

	// Subscribe starts delivery of inspector messages to handler. The
	// returned function stops delivery. At most one subscription is
	// active per handle.
	Subscribe(handler func(Message)) (unsubscribe func())

	// Unsubscribe tears down the session.
	Unsubscribe()

	// Error reports a non-fatal condition (such as a malformed
	// message) back to the inspector.
	Error(message string)
}

// registry holds the process-wide default connector. An inspector
// installs itself with Register; bridges without an explicitly injected
// connector query it with Locate. This mirrors a host-environment
// lookup: nothing registered means no inspector is installed.
var (
	registryMu sync.Mutex
	registered Connector
)

// Register installs connector as the process-wide default. A nil
// connector clears the registration.
func Register(connector Connector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registered = connector
}

// Locate returns the registered connector, if any.
func Locate() (Connector, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registered, registered != nil
}
