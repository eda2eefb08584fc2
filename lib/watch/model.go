// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch implements the live diagnostic view: a full-screen
// terminal UI that re-runs the scan pass on a fixed interval and
// renders the current findings.
//
// Collection runs on its own goroutine and hands results to the UI
// through a single-slot [Latest] mailbox, so a slow probe can never
// freeze keyboard handling and the UI never renders stale backlog.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/metric"
)

// Pass is one completed scan delivered to the TUI.
type Pass struct {
	At       time.Time
	Snapshot *metric.Snapshot
	Findings []engine.Finding
	Err      error
}

// passMsg signals that a new pass is waiting in the mailbox.
type passMsg struct{}

// Config holds the parameters for running the watch view.
type Config struct {
	// Collect runs one scan pass. Called from the collector
	// goroutine, never from the UI loop.
	Collect func(ctx context.Context) Pass

	// Interval between passes. Defaults to 2 seconds.
	Interval time.Duration

	// Clock drives the tick loop.
	Clock clock.Clock

	// Keys overrides the default key bindings when non-zero.
	Keys *KeyMap
}

// Run blocks running the watch TUI until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Collect == nil {
		return fmt.Errorf("watch: Collect is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	keys := DefaultKeyMap
	if cfg.Keys != nil {
		keys = *cfg.Keys
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mailbox := &Latest[Pass]{}
	program := tea.NewProgram(
		newModel(keys, mailbox),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		ticker := cfg.Clock.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			mailbox.Publish(cfg.Collect(ctx))
			program.Send(passMsg{})

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	healthyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// model is the bubbletea model for the watch view.
type model struct {
	keys    KeyMap
	mailbox *Latest[Pass]

	pass      Pass
	havePass  bool
	paused    bool
	cursor    int
	width     int
	height    int
	passCount int
}

func newModel(keys KeyMap, mailbox *Latest[Pass]) *model {
	return &model{keys: keys, mailbox: mailbox, width: 80, height: 24}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case passMsg:
		// While paused the mailbox keeps absorbing newer passes; the
		// view stays frozen and unpause shows the newest one.
		if m.paused {
			return m, nil
		}
		m.applyLatest()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused {
				m.applyLatest()
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.pass.Findings)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m *model) applyLatest() {
	pass, ok := m.mailbox.Take()
	if !ok {
		return
	}
	m.pass = pass
	m.havePass = true
	m.passCount++
	if m.cursor >= len(pass.Findings) {
		m.cursor = max(0, len(pass.Findings)-1)
	}
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.summaryView())
	b.WriteString("\n\n")
	b.WriteString(m.findingsView())
	b.WriteString("\n")
	b.WriteString(m.footerView())

	return b.String()
}

func (m *model) headerView() string {
	title := titleStyle.Render("why — live diagnosis")
	status := ""
	if m.paused {
		status = pausedStyle.Render(" PAUSED")
	} else if m.havePass {
		status = faintStyle.Render(fmt.Sprintf(" pass %d at %s",
			m.passCount, m.pass.At.Format("15:04:05")))
	}
	return ansi.Truncate(title+status, m.width, "…")
}

// summaryView renders the one-line vitals bar from the current
// snapshot. Absent metrics are simply skipped.
func (m *model) summaryView() string {
	if !m.havePass || m.pass.Snapshot == nil {
		return faintStyle.Render("collecting…")
	}

	var parts []string
	snapshot := m.pass.Snapshot
	if cpu, ok := snapshot.Get(metric.KeyCPU).AsNumber(); ok {
		parts = append(parts, gauge("cpu", cpu, 70, 90))
	}
	if mem, ok := snapshot.Get(metric.KeyMem).AsNumber(); ok {
		parts = append(parts, gauge("mem", mem, 75, 90))
	}
	if disk, ok := snapshot.Get(metric.KeyDiskFull).AsNumber(); ok {
		parts = append(parts, gauge("disk", disk, 85, 95))
	}
	if temp, ok := snapshot.Get(metric.KeyTemperature).AsNumber(); ok {
		parts = append(parts, gauge("temp", temp, 75, 90))
	}
	if count, ok := snapshot.Get(metric.KeyProcessCount).AsNumber(); ok {
		parts = append(parts, faintStyle.Render(fmt.Sprintf("procs %d", int(count))))
	}
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

// gauge renders one vitals entry, colored by how close the value is
// to its warning and critical thresholds.
func gauge(label string, value, warn, critical float64) string {
	text := fmt.Sprintf("%s %.0f%%", label, value)
	if label == "temp" {
		text = fmt.Sprintf("%s %.0f°C", label, value)
	}
	switch {
	case value >= critical:
		return criticalStyle.Render(text)
	case value >= warn:
		return warningStyle.Render(text)
	default:
		return healthyStyle.Render(text)
	}
}

func (m *model) findingsView() string {
	if !m.havePass {
		return ""
	}
	if m.pass.Err != nil {
		return criticalStyle.Render("scan failed: " + m.pass.Err.Error())
	}
	if len(m.pass.Findings) == 0 {
		return healthyStyle.Render("no problems detected")
	}

	// Header, summary, blank, footer, and one spare line.
	visible := m.height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(m.pass.Findings) && i < start+visible; i++ {
		finding := &m.pass.Findings[i]
		line := fmt.Sprintf("%s %s", severityBadge(finding.Severity), finding.Message)
		if len(finding.Related) > 0 {
			line += faintStyle.Render(" (related: " + strings.Join(finding.Related, ", ") + ")")
		}
		line = ansi.Truncate(line, m.width, "…")
		if i == m.cursor {
			line = cursorStyle.Render(ansi.Strip(line))
		}
		b.WriteString(line)
		if i < len(m.pass.Findings)-1 && i < start+visible-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// severityBadge renders the [N] severity marker with the standard
// severity coloring.
func severityBadge(severity int) string {
	badge := fmt.Sprintf("[%d]", severity)
	switch {
	case severity >= 8:
		return criticalStyle.Render(badge)
	case severity >= 5:
		return warningStyle.Render(badge)
	default:
		return noticeStyle.Render(badge)
	}
}

func (m *model) footerView() string {
	help := []string{
		m.keys.Up.Help().Key + "/" + m.keys.Down.Help().Key + " move",
		m.keys.Pause.Help().Key + " " + m.keys.Pause.Help().Desc,
		m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc,
	}
	if m.cursor < len(m.pass.Findings) {
		finding := &m.pass.Findings[m.cursor]
		if finding.Solution != "" {
			solution := ansi.Truncate("fix: "+finding.Solution, m.width, "…")
			return noticeStyle.Render(solution) + "\n" + faintStyle.Render(strings.Join(help, " · "))
		}
	}
	return faintStyle.Render(strings.Join(help, " · "))
}
