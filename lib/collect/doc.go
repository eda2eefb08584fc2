// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package collect assembles the per-pass metric snapshot from /proc,
// /sys, and a handful of external tools. Every reader degrades to "no
// value" on failure — a missing tool, an unreadable file, or garbage
// output contributes Absent for its keys and the pass continues.
//
// File readers take the collector's root path so tests can point them
// at synthetic /proc and /sys trees; external commands run through an
// injectable runner with LC_ALL=C forced, and their numeric output
// goes through numparse so a tool that ignores the locale override
// still parses.
package collect
