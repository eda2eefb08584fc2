// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine applies a rule set to a metric snapshot and produces
// severity-ordered findings. Evaluation is a total function over any
// snapshot: absent values and type mismatches make conditions false,
// never errors, so a pass with failed collectors still yields valid
// findings from whatever rules could evaluate.
package engine

import (
	"sort"
	"strings"

	"github.com/whydiag/why/lib/metric"
	"github.com/whydiag/why/lib/rules"
)

// Finding is one fired rule's rendered diagnosis for a single pass.
// Findings are ephemeral: recomputed every pass, never stored by the
// engine.
type Finding struct {
	// Rule is the name of the rule that fired.
	Rule string

	// Severity is the rule's severity, 1..10.
	Severity int

	// Message is the rendered diagnosis.
	Message string

	// Solution is the rendered remedy.
	Solution string

	// AttributedProcess names the process that satisfied the rule's
	// process-scoped conditions, or "" for system-wide findings.
	AttributedProcess string

	// Related lists peer rule names that share this finding's process
	// attribution. Populated by Correlate; purely additive context.
	Related []string

	// AutoFix carries the rule's optional remediation command for the
	// auto-fix gate. Never executed by the engine.
	AutoFix string
}

// Visibility restricts which rule categories an evaluation pass
// considers. Rules with an empty category always participate;
// restricted categories are skipped entirely — not merely hidden —
// unless explicitly requested.
type Visibility struct {
	categories map[string]bool
}

// DefaultVisibility evaluates only uncategorized rules.
func DefaultVisibility() Visibility { return Visibility{} }

// WithCategories returns a Visibility that additionally evaluates the
// named restricted categories.
func WithCategories(names ...string) Visibility {
	categories := make(map[string]bool, len(names))
	for _, name := range names {
		categories[name] = true
	}
	return Visibility{categories: categories}
}

// Allows reports whether rules in the given category are evaluated.
func (v Visibility) Allows(category string) bool {
	return category == "" || v.categories[category]
}

// Evaluate runs every visible rule against the snapshot and returns
// the findings sorted by severity descending, rule name ascending.
// The ordering is deterministic regardless of rule set order.
func Evaluate(snapshot *metric.Snapshot, set *rules.Set, visibility Visibility) []Finding {
	var findings []Finding

	for i := range set.Rules() {
		rule := &set.Rules()[i]
		if !visibility.Allows(rule.Category) {
			continue
		}
		fired, process := ruleFires(snapshot, rule.Compiled())
		if !fired {
			continue
		}
		findings = append(findings, Finding{
			Rule:              rule.Name,
			Severity:          rule.Severity,
			Message:           renderTemplate(rule.Message, process),
			Solution:          renderTemplate(rule.Solution, process),
			AttributedProcess: process,
			AutoFix:           rule.AutoFix,
		})
	}

	sort.SliceStable(findings, func(a, b int) bool {
		if findings[a].Severity != findings[b].Severity {
			return findings[a].Severity > findings[b].Severity
		}
		return findings[a].Rule < findings[b].Rule
	})
	return findings
}

// ruleFires evaluates a compiled trigger. System-wide conditions are
// checked against the top-level snapshot; process-scoped conditions
// must all hold against one and the same process record, whose name is
// returned for attribution.
func ruleFires(snapshot *metric.Snapshot, trigger rules.Trigger) (bool, string) {
	var processConditions []rules.Condition

	for _, condition := range trigger.Conditions {
		if metric.IsProcessKey(condition.Key) {
			processConditions = append(processConditions, condition)
			continue
		}
		if !conditionHolds(snapshot.Get(condition.Key), condition) {
			return false, ""
		}
	}

	if len(processConditions) == 0 {
		return true, ""
	}

	for _, process := range snapshot.Processes() {
		if processSatisfies(process, processConditions) {
			return true, process.Name
		}
	}
	return false, ""
}

func processSatisfies(process metric.ProcessSample, conditions []rules.Condition) bool {
	for _, condition := range conditions {
		if !conditionHolds(process.Lookup(condition.Key), condition) {
			return false
		}
	}
	return true
}

// conditionHolds evaluates one condition against a value. Absent
// operands and cross-kind comparisons are false. Text supports = and
// != (exact, case-sensitive) plus ~ containment; ordering operators on
// Bool or Text are type mismatches.
func conditionHolds(value metric.Value, condition rules.Condition) bool {
	if condition.Contains {
		text, ok := value.AsText()
		return ok && strings.Contains(text, condition.Substring)
	}

	switch condition.Literal.Kind() {
	case metric.KindNumber:
		actual, ok := value.AsNumber()
		if !ok {
			return false
		}
		expected, _ := condition.Literal.AsNumber()
		switch condition.Op {
		case rules.OpGreater:
			return actual > expected
		case rules.OpGreaterEq:
			return actual >= expected
		case rules.OpLess:
			return actual < expected
		case rules.OpLessEq:
			return actual <= expected
		case rules.OpEqual:
			return actual == expected
		case rules.OpNotEqual:
			return actual != expected
		}

	case metric.KindBool:
		actual, ok := value.AsBool()
		if !ok {
			return false
		}
		expected, _ := condition.Literal.AsBool()
		switch condition.Op {
		case rules.OpEqual:
			return actual == expected
		case rules.OpNotEqual:
			return actual != expected
		}

	case metric.KindText:
		actual, ok := value.AsText()
		if !ok {
			return false
		}
		expected, _ := condition.Literal.AsText()
		switch condition.Op {
		case rules.OpEqual:
			return actual == expected
		case rules.OpNotEqual:
			return actual != expected
		}
	}
	return false
}

// renderTemplate interpolates the attributed process into a message or
// solution template. The only placeholder is {process}; unknown
// brace sequences pass through untouched.
func renderTemplate(template, process string) string {
	if process == "" {
		return template
	}
	return strings.ReplaceAll(template, "{process}", process)
}
