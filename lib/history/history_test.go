// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/metric"
)

func openTestStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	store, err := Open(StoreConfig{
		Path:  filepath.Join(t.TempDir(), "history.db"),
		Clock: clk,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func testSnapshot() *metric.Snapshot {
	return metric.NewSnapshot(map[string]metric.Value{
		metric.KeyCPU:           metric.Number(92.5),
		metric.KeyWifiConnected: metric.Bool(true),
		metric.KeyFilesystem:    metric.Text("btrfs"),
	}, []metric.ProcessSample{
		{Name: "chromium", CPUPercent: 61.2, MemPercent: 12.0},
	})
}

func TestRecordAndRecentPasses(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	store := openTestStore(t, clk)
	ctx := context.Background()

	findings := []engine.Finding{
		{Rule: "cpu_high", Severity: 7, Message: "CPU is pegged"},
		{Rule: "cpu_hog_process", Severity: 6, Message: "chromium is eating your CPU", AttributedProcess: "chromium"},
	}

	first, err := store.RecordPass(ctx, "abc123", findings, testSnapshot())
	if err != nil {
		t.Fatalf("RecordPass: %v", err)
	}

	clk.Advance(time.Minute)
	second, err := store.RecordPass(ctx, "abc123", nil, testSnapshot())
	if err != nil {
		t.Fatalf("RecordPass second: %v", err)
	}
	if second == first {
		t.Fatal("pass IDs must be distinct")
	}

	passes, err := store.RecentPasses(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPasses: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(passes))
	}
	// Newest first.
	if passes[0].ID != second || passes[1].ID != first {
		t.Fatalf("order = [%d, %d], want [%d, %d]", passes[0].ID, passes[1].ID, second, first)
	}
	if passes[1].FindingCount != 2 || len(passes[1].Findings) != 2 {
		t.Fatalf("first pass findings = %d/%d", passes[1].FindingCount, len(passes[1].Findings))
	}
	if passes[1].Findings[0].Rule != "cpu_high" {
		t.Fatalf("findings not ordered by severity: %q first", passes[1].Findings[0].Rule)
	}
	if passes[1].Findings[1].Process != "chromium" {
		t.Fatalf("process = %q", passes[1].Findings[1].Process)
	}
	if passes[0].RulesHash != "abc123" {
		t.Fatalf("rules hash = %q", passes[0].RulesHash)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	store := openTestStore(t, clk)
	ctx := context.Background()

	passID, err := store.RecordPass(ctx, "h", nil, testSnapshot())
	if err != nil {
		t.Fatalf("RecordPass: %v", err)
	}

	snapshot, err := store.Snapshot(ctx, passID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if cpu, ok := snapshot.Get(metric.KeyCPU).AsNumber(); !ok || cpu != 92.5 {
		t.Fatalf("cpu = %v, %v", cpu, ok)
	}
	if connected, ok := snapshot.Get(metric.KeyWifiConnected).AsBool(); !ok || !connected {
		t.Fatal("wifi_connected lost")
	}
	if fs, ok := snapshot.Get(metric.KeyFilesystem).AsText(); !ok || fs != "btrfs" {
		t.Fatalf("filesystem = %q, %v", fs, ok)
	}
	process, found := snapshot.FindProcess("chromium")
	if !found || process.CPUPercent != 61.2 {
		t.Fatalf("process = %+v, %v", process, found)
	}
}

func TestSnapshotUnknownPass(t *testing.T) {
	store := openTestStore(t, clock.Fake(time.Unix(0, 0)))
	if _, err := store.Snapshot(context.Background(), 9999); err == nil {
		t.Fatal("expected error for unknown pass")
	}
}

func TestPrune(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	store := openTestStore(t, clk)
	ctx := context.Background()

	if _, err := store.RecordPass(ctx, "h", nil, nil); err != nil {
		t.Fatalf("RecordPass: %v", err)
	}
	clk.Advance(48 * time.Hour)
	recent, err := store.RecordPass(ctx, "h", nil, nil)
	if err != nil {
		t.Fatalf("RecordPass recent: %v", err)
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	passes, err := store.RecentPasses(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPasses: %v", err)
	}
	if len(passes) != 1 || passes[0].ID != recent {
		t.Fatalf("surviving passes = %+v", passes)
	}
}
