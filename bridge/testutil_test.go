// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/rewind-foundation/rewind/inspector"
	"github.com/rewind-foundation/rewind/store"
)

// sendCall records one Handle.Send invocation.
type sendCall struct {
	label string
	state store.Snapshot
}

// fakeHandle is an in-memory inspector session that records every call
// so tests can assert exact init/send counts and payloads. Messages are
// delivered synchronously through deliver, mirroring the push-based
// single-threaded contract of a real connector.
type fakeHandle struct {
	mu             sync.Mutex
	initCalls      []store.Snapshot
	sendCalls      []sendCall
	errorMessages  []string
	handler        func(inspector.Message)
	subscribeCount int
	unsubscribed   bool
}

func (h *fakeHandle) Init(state store.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initCalls = append(h.initCalls, state.Clone())
}

func (h *fakeHandle) Send(label string, state store.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendCalls = append(h.sendCalls, sendCall{label: label, state: state.Clone()})
}

func (h *fakeHandle) Subscribe(handler func(inspector.Message)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeCount++
	h.handler = handler
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.handler = nil
	}
}

func (h *fakeHandle) Unsubscribe() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribed = true
}

func (h *fakeHandle) Error(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorMessages = append(h.errorMessages, message)
}

// deliver pushes a raw wire message through the subscribed handler, the
// way a real inspector would.
func (h *fakeHandle) deliver(t *testing.T, wireJSON string) {
	t.Helper()
	message, err := inspector.ParseMessage([]byte(wireJSON))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()
	if handler == nil {
		t.Fatal("deliver: no subscribed handler")
	}
	handler(message)
}

func (h *fakeHandle) initCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.initCalls)
}

func (h *fakeHandle) sendCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sendCalls)
}

func (h *fakeHandle) lastInit() store.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.initCalls) == 0 {
		return nil
	}
	return h.initCalls[len(h.initCalls)-1]
}

func (h *fakeHandle) lastSend() (sendCall, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sendCalls) == 0 {
		return sendCall{}, false
	}
	return h.sendCalls[len(h.sendCalls)-1], true
}

func (h *fakeHandle) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errorMessages)
}

// fakeConnector hands out a single fakeHandle, or fails with connectErr.
type fakeConnector struct {
	mu           sync.Mutex
	handle       *fakeHandle
	connectErr   error
	connectCalls int
}

func (c *fakeConnector) Connect(options inspector.Options) (inspector.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectCalls++
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.handle, nil
}

// newBridgedCounter attaches a fresh counter store ({count: 0}) to a
// recording fake inspector and returns all three pieces. The bridge is
// detached on test cleanup so the idempotence registry stays clean
// across tests.
func newBridgedCounter(t *testing.T) (*store.Memory, *fakeHandle, *Bridge) {
	t.Helper()

	memory := store.NewMemory(store.Snapshot{"count": float64(0)})
	handle := &fakeHandle{}
	bridged, err := Attach(memory, Options{
		Connector: &fakeConnector{handle: handle},
		Name:      "bridge-test",
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(bridged.Detach)
	return memory, handle, bridged
}

// increment bumps the counter store by one through the local-mutation
// path, which triggers the mutation forwarder.
func increment(memory *store.Memory) {
	memory.Update(func(state store.Snapshot) {
		state["count"] = state["count"].(float64) + 1
	})
}

// countingLogHandler counts slog records whose message matches, for
// asserting the one-time development warning.
type countingLogHandler struct {
	mu      sync.Mutex
	message string
	count   int
}

func (h *countingLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingLogHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Message == h.message {
		h.count++
	}
	return nil
}

func (h *countingLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingLogHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingLogHandler) matches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// panicOnWrite wraps a memory store and panics on the first Write,
// for verifying that the travel guard clears on the way out of a
// failing store write.
type panicOnWrite struct {
	*store.Memory
	panicked bool
}

func (p *panicOnWrite) Write(next store.Snapshot) {
	if !p.panicked {
		p.panicked = true
		panic(fmt.Sprintf("store rejected write of %v", next))
	}
	p.Memory.Write(next)
}
