// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock is a deterministic Clock for tests. Time stands still until
// Advance moves it forward, firing any pending After waiters whose
// deadline has been reached.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// Fake returns a FakeClock starting at a fixed, arbitrary instant.
// Using a constant start keeps timestamps in test output reproducible.
func Fake() *FakeClock {
	return &FakeClock{current: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// After returns a channel that fires when Advance moves the clock past
// duration d. A non-positive duration fires immediately.
func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.current
		return ch
	}
	f.waiters = append(f.waiters, fakeWaiter{deadline: f.current.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline has passed.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = f.current.Add(d)

	remaining := f.waiters[:0]
	for _, waiter := range f.waiters {
		if !waiter.deadline.After(f.current) {
			waiter.ch <- f.current
		} else {
			remaining = append(remaining, waiter)
		}
	}
	f.waiters = remaining
}

// Compile-time check: *FakeClock implements Clock.
var _ Clock = (*FakeClock)(nil)
