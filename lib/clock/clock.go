// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() and advance it deterministically. History
// timestamps and the demo application's mutation ticker both go through
// this interface so tests never sleep.
package clock

import "time"

// Clock is the time surface Rewind components depend on. Any function
// that would call time.Now or time.After takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0, the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time
}
