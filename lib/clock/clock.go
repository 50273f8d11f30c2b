// Copyright 2026 The Threadline Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock provides the current time and one-shot scheduled callbacks.
// Every production function that would call time.Now or time.AfterFunc
// takes a Clock (or is a method on a struct with a Clock field)
// instead of calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f in its own
	// goroutine. Returns a Timer that can cancel the pending call
	// with Stop. If d <= 0, f runs immediately.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled callback created by AfterFunc.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. Returns true if the call stops
// the timer, false if the timer has already fired or been stopped.
// Stop does not wait for an in-flight callback to return.
func (t *Timer) Stop() bool { return t.stopFunc() }
