// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package metric defines the value model the rule engine evaluates
// against: a closed tagged union of Number, Bool, Text, and Absent,
// and an immutable per-pass Snapshot of metric keys. Absent is a
// first-class value, never an error — a collector that fails simply
// contributes Absent for its keys and the pass continues.
package metric
