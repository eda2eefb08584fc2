// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/whydiag/why/lib/metric"
	"github.com/whydiag/why/lib/rules"
)

func mustParse(t *testing.T, document string) *rules.Set {
	t.Helper()
	set, err := rules.Parse([]byte(document))
	if err != nil {
		t.Fatalf("rules.Parse: %v", err)
	}
	return set
}

func snapshotOf(values map[string]metric.Value, processes ...metric.ProcessSample) *metric.Snapshot {
	return metric.NewSnapshot(values, processes)
}

func TestEvaluateScenarioOrdering(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: B, trigger: "wifi_connected=true && wifi_signal<50", message: "weak wifi", severity: 7}
  - {name: A, trigger: "cpu>80", message: "busy cpu", severity: 9}
`)
	snapshot := snapshotOf(map[string]metric.Value{
		"cpu":            metric.Number(92.5),
		"mem":            metric.Number(45.0),
		"wifi_connected": metric.Bool(true),
		"wifi_signal":    metric.Number(42),
	})

	findings := Evaluate(snapshot, set, DefaultVisibility())
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	if findings[0].Rule != "A" || findings[1].Rule != "B" {
		t.Errorf("order = [%s %s], want [A B]", findings[0].Rule, findings[1].Rule)
	}
}

func TestEvaluateAbsentMetricNeverFires(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: B, trigger: "wifi_connected=true && wifi_signal<50", message: "weak wifi", severity: 7}
`)
	// wifi_signal deliberately missing: the collector failed.
	snapshot := snapshotOf(map[string]metric.Value{
		"wifi_connected": metric.Bool(true),
	})

	findings := Evaluate(snapshot, set, DefaultVisibility())
	if len(findings) != 0 {
		t.Fatalf("rule fired against an Absent metric: %+v", findings)
	}
}

func TestEvaluateTypeMismatchIsFalse(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: numeric_vs_text, trigger: "filesystem>5", message: m, severity: 5}
  - {name: bool_ordering, trigger: "wifi_connected>0", message: m, severity: 5}
  - {name: text_vs_number, trigger: "cpu=btrfs", message: m, severity: 5}
`)
	snapshot := snapshotOf(map[string]metric.Value{
		"filesystem":     metric.Text("btrfs"),
		"wifi_connected": metric.Bool(true),
		"cpu":            metric.Number(50),
	})

	if findings := Evaluate(snapshot, set, DefaultVisibility()); len(findings) != 0 {
		t.Fatalf("type-mismatched rules fired: %+v", findings)
	}
}

func TestEvaluateDeterministicOrderFromShuffledSet(t *testing.T) {
	// Build many rules with colliding severities in random document
	// order; output order must not depend on it.
	names := []string{"echo", "alpha", "delta", "bravo", "charlie", "foxtrot"}
	severities := []int{5, 9, 5, 9, 5, 9}

	var expected []string
	expected = append(expected, "alpha", "bravo", "foxtrot") // severity 9, name asc
	expected = append(expected, "charlie", "delta", "echo")  // severity 5, name asc

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		order := rng.Perm(len(names))
		var document strings.Builder
		document.WriteString("rules:\n")
		for _, i := range order {
			fmt.Fprintf(&document, "  - {name: %s, trigger: \"cpu>0\", message: m, severity: %d}\n",
				names[i], severities[i])
		}

		set := mustParse(t, document.String())
		snapshot := snapshotOf(map[string]metric.Value{"cpu": metric.Number(1)})
		findings := Evaluate(snapshot, set, DefaultVisibility())

		var got []string
		for _, finding := range findings {
			got = append(got, finding.Rule)
		}
		if strings.Join(got, " ") != strings.Join(expected, " ") {
			t.Fatalf("trial %d: order = %v, want %v", trial, got, expected)
		}
	}
}

func TestEvaluateVisibilityFilter(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: always, trigger: "cpu>=0", message: m, severity: 5}
  - {name: gaming_always, trigger: "cpu>=0", message: m, severity: 5, category: gaming}
`)
	snapshot := snapshotOf(map[string]metric.Value{"cpu": metric.Number(10)})

	defaultFindings := Evaluate(snapshot, set, DefaultVisibility())
	if len(defaultFindings) != 1 || defaultFindings[0].Rule != "always" {
		t.Fatalf("default visibility findings = %+v", defaultFindings)
	}

	gamingFindings := Evaluate(snapshot, set, WithCategories("gaming"))
	if len(gamingFindings) != 2 {
		t.Fatalf("gaming visibility findings = %+v", gamingFindings)
	}
}

func TestEvaluateProcessAttribution(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: hog, trigger: "process~chrom && process_cpu>50", message: "{process} is hogging", severity: 8}
`)
	snapshot := snapshotOf(
		map[string]metric.Value{"cpu": metric.Number(90)},
		metric.ProcessSample{Name: "chromium", CPUPercent: 12},
		metric.ProcessSample{Name: "firefox", CPUPercent: 80},
		metric.ProcessSample{Name: "chrome", CPUPercent: 71},
	)

	findings := Evaluate(snapshot, set, DefaultVisibility())
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	// chromium matches the containment but not the CPU condition, and
	// firefox matches CPU but not containment: both conditions must
	// hold for the same process record.
	if findings[0].AttributedProcess != "chrome" {
		t.Errorf("AttributedProcess = %q, want chrome", findings[0].AttributedProcess)
	}
	if findings[0].Message != "chrome is hogging" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestEvaluateProcessConditionsNotIndependent(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: combo, trigger: "process~nginx && process_mem>30", message: m, severity: 5}
`)
	// nginx exists and a different process has high memory; the rule
	// must not fire by mixing records.
	snapshot := snapshotOf(nil,
		metric.ProcessSample{Name: "nginx", MemPercent: 2},
		metric.ProcessSample{Name: "postgres", MemPercent: 45},
	)

	if findings := Evaluate(snapshot, set, DefaultVisibility()); len(findings) != 0 {
		t.Fatalf("rule fired across different process records: %+v", findings)
	}
}

func TestEvaluateMixedGlobalAndProcessConditions(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: mixed, trigger: "mem>80 && process~java && process_mem>20", message: m, severity: 6}
`)
	sample := metric.ProcessSample{Name: "java", MemPercent: 33}

	fires := snapshotOf(map[string]metric.Value{"mem": metric.Number(91)}, sample)
	if findings := Evaluate(fires, set, DefaultVisibility()); len(findings) != 1 {
		t.Fatalf("expected rule to fire: %+v", findings)
	}

	globalFails := snapshotOf(map[string]metric.Value{"mem": metric.Number(40)}, sample)
	if findings := Evaluate(globalFails, set, DefaultVisibility()); len(findings) != 0 {
		t.Fatalf("rule fired despite failing global condition: %+v", findings)
	}
}

func TestEvaluateTextEquality(t *testing.T) {
	set := mustParse(t, `
rules:
  - {name: exact, trigger: "filesystem=btrfs", message: m, severity: 3}
  - {name: negated, trigger: "session_type!=wayland", message: m, severity: 2}
  - {name: case_sensitive, trigger: "filesystem=BTRFS", message: m, severity: 3}
`)
	snapshot := snapshotOf(map[string]metric.Value{
		"filesystem":   metric.Text("btrfs"),
		"session_type": metric.Text("x11"),
	})

	findings := Evaluate(snapshot, set, DefaultVisibility())
	var fired []string
	for _, finding := range findings {
		fired = append(fired, finding.Rule)
	}
	if strings.Join(fired, " ") != "exact negated" {
		t.Errorf("fired = %v, want [exact negated]", fired)
	}
}

func TestCorrelateLinksSharedProcess(t *testing.T) {
	findings := []Finding{
		{Rule: "cpu_hog", Severity: 9, AttributedProcess: "chrome"},
		{Rule: "system_wide", Severity: 8},
		{Rule: "mem_hog", Severity: 7, AttributedProcess: "chrome"},
		{Rule: "other_process", Severity: 6, AttributedProcess: "java"},
	}

	linked := Correlate(findings)

	if len(linked) != 4 {
		t.Fatalf("Correlate changed finding count: %d", len(linked))
	}
	for i, finding := range linked {
		if finding.Rule != findings[i].Rule {
			t.Fatalf("Correlate reordered findings")
		}
	}

	if got := strings.Join(linked[0].Related, " "); got != "mem_hog" {
		t.Errorf("cpu_hog.Related = %v", linked[0].Related)
	}
	if got := strings.Join(linked[2].Related, " "); got != "cpu_hog" {
		t.Errorf("mem_hog.Related = %v", linked[2].Related)
	}
	if linked[1].Related != nil {
		t.Errorf("system_wide finding gained links: %v", linked[1].Related)
	}
	if linked[3].Related != nil {
		t.Errorf("singleton group gained links: %v", linked[3].Related)
	}
}

// The default document's gaming triggers must use the same value kinds
// the collector publishes, or type mismatch silently kills them.
func TestDefaultRulesFireOnCollectorShapedSnapshot(t *testing.T) {
	set, err := rules.LoadDefault()
	if err != nil {
		t.Fatalf("rules.LoadDefault: %v", err)
	}

	snapshot := snapshotOf(map[string]metric.Value{
		"gpu_vendor":      metric.Text("nvidia"),
		"prime_offload":   metric.Text("disabled"),
		"proton_failures": metric.Bool(true),
		"steam_running":   metric.Bool(true),
	})

	findings := Evaluate(snapshot, set, WithCategories("gaming"))
	fired := make(map[string]bool)
	for _, finding := range findings {
		fired[finding.Rule] = true
	}
	for _, want := range []string{"gaming_proton_crashes", "gaming_prime_off"} {
		if !fired[want] {
			t.Errorf("rule %s did not fire; got %v", want, findings)
		}
	}
}
