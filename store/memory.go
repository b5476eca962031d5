// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "sync"

// Memory is the reference Adapter implementation: a mutex-guarded state
// value with synchronous mutation callbacks. Used by the demo binary,
// the test suite, and host applications that do not bring their own
// observable container.
type Memory struct {
	mu          sync.Mutex
	state       Snapshot
	subscribers []subscriber
	nextID      int
}

// subscriber pairs a callback with a removal token. A slice (not a map)
// preserves registration order for callback delivery.
type subscriber struct {
	id       int
	callback func()
}

// NewMemory creates a memory store seeded with a deep copy of initial.
// A nil initial state starts the store empty.
func NewMemory(initial Snapshot) *Memory {
	if initial == nil {
		initial = Snapshot{}
	}
	return &Memory{state: initial.Clone()}
}

// Read returns a deep copy of the current state.
func (m *Memory) Read() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Write overwrites the state with a deep copy of next, then invokes
// mutation callbacks. Callbacks run after the lock is released so they
// can call Read without deadlocking.
func (m *Memory) Write(next Snapshot) {
	m.mu.Lock()
	if next == nil {
		next = Snapshot{}
	}
	m.state = next.Clone()
	callbacks := m.callbacksLocked()
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// Update applies a mutation function to the state in place, then
// invokes mutation callbacks. This is the local-mutation path for
// application code: the function receives the live state value.
func (m *Memory) Update(mutate func(Snapshot)) {
	m.mu.Lock()
	mutate(m.state)
	callbacks := m.callbacksLocked()
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// OnMutation registers a callback invoked after every Write or Update.
// The returned function removes the registration and is safe to call
// more than once.
func (m *Memory) OnMutation(callback func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subscribers = append(m.subscribers, subscriber{id: id, callback: callback})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for index, entry := range m.subscribers {
			if entry.id == id {
				m.subscribers = append(m.subscribers[:index], m.subscribers[index+1:]...)
				return
			}
		}
	}
}

// callbacksLocked snapshots the subscriber callbacks under the lock so
// they can be invoked after release. Unsubscribing during delivery
// affects the next mutation, not the in-flight one.
func (m *Memory) callbacksLocked() []func() {
	callbacks := make([]func(), len(m.subscribers))
	for index, entry := range m.subscribers {
		callbacks[index] = entry.callback
	}
	return callbacks
}

// Compile-time check: *Memory implements Adapter.
var _ Adapter = (*Memory)(nil)
