// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import "sync"

// Latest is a single-slot handoff between the collector goroutine and
// the TUI. Publish overwrites any value the consumer has not taken
// yet, so the TUI always renders the newest pass and never works
// through a backlog after a stall. The collector never blocks on a
// slow consumer.
type Latest[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

// Publish stores value, replacing any unconsumed one.
func (l *Latest[T]) Publish(value T) {
	l.mu.Lock()
	l.value = value
	l.set = true
	l.mu.Unlock()
}

// Take returns the most recently published value and clears the slot.
// ok is false when nothing new has been published since the last Take.
func (l *Latest[T]) Take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		var zero T
		return zero, false
	}
	l.set = false
	return l.value, true
}
