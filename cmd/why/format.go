// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/whydiag/why/lib/engine"
)

var (
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	healthyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	solutionStyle = lipgloss.NewStyle().Faint(true)
)

// configureColor forces monochrome output when requested or when
// stdout is not a terminal. lipgloss renders through termenv, so
// setting the profile once covers every styled string.
func configureColor(noColor bool) {
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}

// severityStyle returns the display style for a severity rank.
func severityStyle(severity int) lipgloss.Style {
	switch {
	case severity >= 8:
		return criticalStyle
	case severity >= 5:
		return warningStyle
	default:
		return noticeStyle
	}
}

// printFindings renders an evaluation pass for one-shot commands.
// Findings arrive already ordered (severity descending, name
// ascending) and are printed in that order.
func printFindings(w io.Writer, findings []engine.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, healthyStyle.Render("✓ no problems detected"))
		return
	}

	for i := range findings {
		finding := &findings[i]
		badge := severityStyle(finding.Severity).Render(fmt.Sprintf("[%d]", finding.Severity))
		fmt.Fprintf(w, "%s %s\n", badge, finding.Message)
		if finding.Solution != "" {
			fmt.Fprintf(w, "    %s\n", solutionStyle.Render("fix: "+finding.Solution))
		}
		if len(finding.Related) > 0 {
			fmt.Fprintf(w, "    %s\n", solutionStyle.Render("related: "+strings.Join(finding.Related, ", ")))
		}
	}
}

// findingJSON is the machine-readable shape of one finding. The wire
// names are presentation contract; the engine struct stays tag-free.
type findingJSON struct {
	Rule              string   `json:"rule"`
	Severity          int      `json:"severity"`
	Message           string   `json:"message"`
	Solution          string   `json:"solution,omitempty"`
	AttributedProcess string   `json:"process,omitempty"`
	Related           []string `json:"related,omitempty"`
}

// printFindingsJSON renders an evaluation pass as a JSON array for
// scripting consumers. A clean pass is an empty array, not null.
func printFindingsJSON(w io.Writer, findings []engine.Finding) error {
	out := make([]findingJSON, 0, len(findings))
	for i := range findings {
		finding := &findings[i]
		out = append(out, findingJSON{
			Rule:              finding.Rule,
			Severity:          finding.Severity,
			Message:           finding.Message,
			Solution:          finding.Solution,
			AttributedProcess: finding.AttributedProcess,
			Related:           finding.Related,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
