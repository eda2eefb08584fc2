// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package probecache memoizes expensive external probes (vendor GPU
// tools and the like) for a bounded time window. Within the TTL a
// cached result is returned without re-invoking the probe; on expiry
// exactly one caller performs the refresh while concurrent callers for
// the same key wait for and reuse its result instead of issuing a
// duplicate external call.
package probecache

import (
	"sync"
	"time"

	"github.com/whydiag/why/lib/clock"
)

// Cache memoizes fetch results per key. The zero value is not usable;
// construct with New. The cache's mutex is the only shared-mutable
// lock in the engine core.
type Cache[V any] struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]*entry[V]
}

type entry[V any] struct {
	value     V
	err       error
	fetchedAt time.Time

	// ready is closed when an in-flight fetch completes. Nil when no
	// fetch is running.
	ready chan struct{}
}

// New returns an empty Cache using the given clock.
func New[V any](clk clock.Clock) *Cache[V] {
	return &Cache[V]{
		clock:   clk,
		entries: make(map[string]*entry[V]),
	}
}

// GetOrFetch returns the cached value for key if it is younger than
// ttl; otherwise it invokes fetch synchronously and caches the result.
// A fetch error is cached like a value for the same window, so a
// failing probe is attempted at most once per refresh cycle and
// surfaces as missing data, not as a retry storm.
//
// When a second caller arrives while a fetch for the same key is in
// flight, it blocks until that fetch completes and shares its result.
func (c *Cache[V]) GetOrFetch(key string, ttl time.Duration, fetch func() (V, error)) (V, error) {
	c.mu.Lock()

	current := c.entries[key]
	if current != nil {
		if current.ready != nil {
			// Fetch in flight: wait for it and reuse the result.
			ready := current.ready
			c.mu.Unlock()
			<-ready
			c.mu.Lock()
			value, err := current.value, current.err
			c.mu.Unlock()
			return value, err
		}
		if c.clock.Now().Sub(current.fetchedAt) < ttl {
			value, err := current.value, current.err
			c.mu.Unlock()
			return value, err
		}
	}

	// Stale or missing: this caller performs the refresh.
	fresh := &entry[V]{ready: make(chan struct{})}
	c.entries[key] = fresh
	c.mu.Unlock()

	value, err := fetch()

	c.mu.Lock()
	fresh.value = value
	fresh.err = err
	fresh.fetchedAt = c.clock.Now()
	close(fresh.ready)
	fresh.ready = nil
	c.mu.Unlock()

	return value, err
}

// Forget drops the entry for key. The next GetOrFetch refetches. Used
// by the explicit reload path; an in-flight fetch is unaffected (its
// waiters still receive its result).
func (c *Cache[V]) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current := c.entries[key]; current != nil && current.ready == nil {
		delete(c.entries, key)
	}
}
