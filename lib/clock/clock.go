// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the probe cache and the watch-mode
// tick loop. Production code injects Real(); tests inject Fake() and
// advance time deterministically instead of sleeping.
package clock

import "time"

// Clock is the time surface the rest of the codebase depends on.
// Anything that calls time.Now, time.After, or time.NewTicker takes a
// Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has
	// elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering on C every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop to
// release it. C is buffered with capacity 1 — slow consumers drop
// ticks rather than queue them.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stop() }

type realClock struct{}

// Real returns the Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	inner := time.NewTicker(d)
	return &Ticker{C: inner.C, stop: inner.Stop}
}
