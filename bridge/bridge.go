// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rewind-foundation/rewind/inspector"
	"github.com/rewind-foundation/rewind/store"
)

// DefaultActionLabel is the action descriptor used when Options does
// not supply one. The inspector displays it next to every forwarded
// mutation.
const DefaultActionLabel = "update"

// Options configures a bridge attachment.
type Options struct {
	// Connector is the inspector connector to use. When nil, the
	// process-wide registration (inspector.Locate) is queried; if that
	// also finds nothing, the bridge degrades to a no-op.
	Connector inspector.Connector

	// Name identifies the application instance in the inspector UI.
	Name string

	// ActionLabel is the descriptor sent with every forwarded mutation.
	// Defaults to DefaultActionLabel.
	ActionLabel string

	// Development enables the one-time "inspector extension not
	// detected" warning when no connector is available. Outside
	// development builds the absence is silent.
	Development bool

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Bridge wires an observable store to an inspector session: it forwards
// store mutations as inspector actions and applies inspector messages
// (replay, jump, commit, import) back to the store. The travel guard
// prevents the feedback loop between the two directions.
type Bridge struct {
	adapter store.Adapter
	handle  inspector.Handle
	options Options
	logger  *slog.Logger

	// traveling is the travel guard: true exactly while the message
	// handler is writing a remotely-originated state into the store.
	// Atomic rather than mutex-guarded because the store's mutation
	// callback runs synchronously inside the guarded Write, on the
	// same goroutine that engaged the guard — a lock there would
	// self-deadlock.
	traveling atomic.Bool

	// messageMu serializes inspector message handling. Mutations and
	// messages are logically single-threaded events; this enforces the
	// one-at-a-time ordering when the connector delivers messages from
	// its own read goroutine.
	messageMu sync.Mutex

	// warnOnce gates the single development-mode warning emitted when
	// no inspector is installed.
	warnOnce sync.Once

	unsubscribeStore  func()
	unsubscribeHandle func()

	detachMu sync.Mutex
	detached bool
}

// attached tracks which store instances already have a bridge, making
// Attach idempotent per store. Keyed on the Adapter interface value, so
// implementations must be comparable (pointer receivers are).
var (
	attachedMu sync.Mutex
	attached   = map[store.Adapter]*Bridge{}
)

// Attach bridges the given store to an inspector. Attaching a store
// that is already bridged returns the existing bridge without
// duplicating any wiring.
//
// Absence of an inspector is not an error: the bridge is returned in a
// degraded no-op state, and in development mode it logs exactly one
// warning on the first mutation under the bridged store. A connector
// that is present but fails to connect degrades the same way.
func Attach(adapter store.Adapter, options Options) (*Bridge, error) {
	if adapter == nil {
		return nil, fmt.Errorf("bridge: adapter is required")
	}

	attachedMu.Lock()
	defer attachedMu.Unlock()
	if existing, ok := attached[adapter]; ok {
		return existing, nil
	}

	if options.ActionLabel == "" {
		options.ActionLabel = DefaultActionLabel
	}

	bridge := &Bridge{
		adapter: adapter,
		options: options,
		logger:  options.Logger,
	}

	connector := options.Connector
	if connector == nil {
		connector, _ = inspector.Locate()
	}

	if connector != nil {
		handle, err := connector.Connect(inspector.Options{Name: options.Name})
		if err != nil {
			// A present-but-broken inspector degrades exactly like an
			// absent one. The host application must keep working.
			bridge.log().Warn("inspector connect failed, bridging disabled", "error", err)
		} else {
			bridge.handle = handle
		}
	}

	if bridge.handle != nil {
		// Seed the inspector with the current state before any
		// mutation can be forwarded, then open both directions.
		bridge.handle.Init(adapter.Read())
		bridge.unsubscribeStore = adapter.OnMutation(bridge.onMutation)
		bridge.unsubscribeHandle = bridge.handle.Subscribe(bridge.onMessage)
	} else if options.Development {
		// No inspector: subscribe only to detect the first mutation
		// cycle and emit the one-time warning.
		bridge.unsubscribeStore = adapter.OnMutation(bridge.onMutation)
	}

	attached[adapter] = bridge
	return bridge, nil
}

// Detach tears down the bridge: it stops forwarding mutations, stops
// message delivery, and releases the inspector session. Idempotent.
// The store itself is untouched.
func (b *Bridge) Detach() {
	b.detachMu.Lock()
	defer b.detachMu.Unlock()
	if b.detached {
		return
	}
	b.detached = true

	if b.unsubscribeStore != nil {
		b.unsubscribeStore()
	}
	if b.unsubscribeHandle != nil {
		b.unsubscribeHandle()
	}
	if b.handle != nil {
		b.handle.Unsubscribe()
	}

	attachedMu.Lock()
	delete(attached, b.adapter)
	attachedMu.Unlock()
}

// onMutation is the mutation forwarder (one invocation per store
// mutation, after the mutation has taken effect). It is the sole
// chokepoint preventing remotely-originated writes from echoing back
// into the inspector's action log: when the travel guard is engaged,
// the mutation is not forwarded.
func (b *Bridge) onMutation() {
	if b.handle == nil {
		b.warnOnce.Do(func() {
			b.log().Warn("inspector extension not detected")
		})
		return
	}
	if b.traveling.Load() {
		return
	}
	b.handle.Send(b.options.ActionLabel, b.adapter.Read())
}

// onMessage applies one inspector message to the store. Unrecognized
// message types and dispatch subtypes are ignored, not reported, for
// forward compatibility with inspector protocol additions.
func (b *Bridge) onMessage(message inspector.Message) {
	b.messageMu.Lock()
	defer b.messageMu.Unlock()

	switch message.Type {
	case inspector.MessageTypeAction:
		b.handleAction(message)
	case inspector.MessageTypeDispatch:
		b.handleDispatch(message)
	default:
		b.log().Debug("ignoring unrecognized inspector message", "type", string(message.Type))
	}
}

// handleAction applies a replayed single action. The travel guard is
// deliberately NOT engaged: replaying one action is treated identically
// to a fresh local mutation, so the forwarder fires and the inspector's
// action counter advances. See the dispatch paths for the contrast.
func (b *Bridge) handleAction(message inspector.Message) {
	state, err := message.ActionState()
	if err != nil {
		b.report(err)
		return
	}
	b.adapter.Write(state)
}

// handleDispatch applies a time-travel command.
func (b *Bridge) handleDispatch(message inspector.Message) {
	payload, err := message.Dispatch()
	if err != nil {
		b.report(err)
		return
	}

	switch payload.Type {
	case inspector.DispatchCommit:
		// Re-baseline the inspector at the current state. No store
		// write, so the forwarder never enters the picture.
		b.handle.Init(b.adapter.Read())

	case inspector.DispatchJumpToAction, inspector.DispatchJumpToState:
		state, err := inspector.ParseSnapshot(message.State)
		if err != nil {
			b.report(err)
			return
		}
		// The inspector already has this state in its timeline —
		// forwarding it again would duplicate the entry.
		b.travel(func() { b.adapter.Write(state) })

	case inspector.DispatchImportState:
		b.handleImport(payload.NextLiftedState)

	default:
		b.log().Debug("ignoring unrecognized dispatch", "type", string(payload.Type))
	}
}

// handleImport replays an imported history: the inspector is
// re-baselined at the first recorded state, then every subsequent
// computed state is written into the store under the travel guard, so
// the store (and any live view bound to it) ends at the last recorded
// state without a single Send escaping.
func (b *Bridge) handleImport(lifted *inspector.LiftedState) {
	if lifted == nil || len(lifted.ComputedStates) == 0 {
		b.report(fmt.Errorf("bridge: IMPORT_STATE carries no computed states"))
		return
	}

	b.handle.Init(lifted.ComputedStates[0].State)
	for _, computed := range lifted.ComputedStates[1:] {
		state := computed.State
		b.travel(func() { b.adapter.Write(state) })
	}
}

// travel runs fn with the travel guard engaged. The deferred reset
// keeps the guard exception-safe: a panic inside the store write still
// clears it on the way out.
func (b *Bridge) travel(fn func()) {
	b.traveling.Store(true)
	defer b.traveling.Store(false)
	fn()
}

// report logs a malformed-message condition and surfaces it to the
// inspector. Parse failures must never crash the host application.
func (b *Bridge) report(err error) {
	b.log().Warn("inspector message rejected", "error", err)
	if b.handle != nil {
		b.handle.Error(err.Error())
	}
}

// log returns the configured logger or the default.
func (b *Bridge) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
