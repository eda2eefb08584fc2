// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/metric"
)

func TestLatestOverwrites(t *testing.T) {
	latest := &Latest[int]{}

	if _, ok := latest.Take(); ok {
		t.Fatal("empty slot should report nothing")
	}

	latest.Publish(1)
	latest.Publish(2)
	latest.Publish(3)

	value, ok := latest.Take()
	if !ok || value != 3 {
		t.Fatalf("got %d, %v; want newest value 3", value, ok)
	}
	if _, ok := latest.Take(); ok {
		t.Fatal("slot must be empty after Take")
	}
}

func TestLatestConcurrentPublish(t *testing.T) {
	latest := &Latest[int]{}
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			latest.Publish(i)
		}()
	}
	wg.Wait()

	value, ok := latest.Take()
	if !ok || value < 0 || value >= 16 {
		t.Fatalf("got %d, %v", value, ok)
	}
}

func testPass(findings ...engine.Finding) Pass {
	return Pass{
		At: time.Unix(1_700_000_000, 0),
		Snapshot: metric.NewSnapshot(map[string]metric.Value{
			metric.KeyCPU: metric.Number(42),
			metric.KeyMem: metric.Number(91),
		}, nil),
		Findings: findings,
	}
}

func TestModelAppliesLatestPass(t *testing.T) {
	mailbox := &Latest[Pass]{}
	m := newModel(DefaultKeyMap, mailbox)

	mailbox.Publish(testPass(engine.Finding{Rule: "cpu_high", Severity: 7, Message: "CPU is pegged"}))
	m.Update(passMsg{})

	view := m.View()
	if !strings.Contains(view, "CPU is pegged") {
		t.Fatalf("view missing finding:\n%s", view)
	}
	if !strings.Contains(view, "[7]") {
		t.Fatalf("view missing severity badge:\n%s", view)
	}
}

func TestModelPauseFreezesView(t *testing.T) {
	mailbox := &Latest[Pass]{}
	m := newModel(DefaultKeyMap, mailbox)

	mailbox.Publish(testPass(engine.Finding{Rule: "a", Severity: 3, Message: "first"}))
	m.Update(passMsg{})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})

	mailbox.Publish(testPass(engine.Finding{Rule: "b", Severity: 3, Message: "second"}))
	m.Update(passMsg{})

	if !strings.Contains(m.View(), "first") {
		t.Fatal("paused view should keep the old pass")
	}

	// Unpause applies the newest mailbox value.
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	if !strings.Contains(m.View(), "second") {
		t.Fatal("unpause should show the newest pass")
	}
}

func TestModelCursorClampedToFindings(t *testing.T) {
	mailbox := &Latest[Pass]{}
	m := newModel(DefaultKeyMap, mailbox)

	mailbox.Publish(testPass(
		engine.Finding{Rule: "a", Severity: 9, Message: "one"},
		engine.Finding{Rule: "b", Severity: 5, Message: "two"},
	))
	m.Update(passMsg{})

	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	m.Update(down)
	m.Update(down)
	m.Update(down)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want clamped to 1", m.cursor)
	}

	// A shorter pass pulls the cursor back in range.
	mailbox.Publish(testPass(engine.Finding{Rule: "a", Severity: 9, Message: "only"}))
	m.Update(passMsg{})
	if m.cursor != 0 {
		t.Fatalf("cursor = %d after shrink, want 0", m.cursor)
	}
}

func TestModelQuit(t *testing.T) {
	m := newModel(DefaultKeyMap, &Latest[Pass]{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key should produce a command")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("quit command should produce a message")
	}
}
