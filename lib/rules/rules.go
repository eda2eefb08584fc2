// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package rules loads and validates the diagnostic rule set and
// compiles each rule's trigger into an expression tree. A rule set is
// loaded once, validated fail-fast (the first invalid record aborts
// the whole load), and immutable afterwards.
package rules

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultDocument []byte

// Rule is one diagnostic rule as authored in the rules document.
type Rule struct {
	// Name uniquely identifies the rule within the set.
	Name string `yaml:"name"`

	// Trigger is the activation condition in the conjunction DSL.
	Trigger string `yaml:"trigger"`

	// Message is the diagnosis template. "{process}" interpolates the
	// attributed process for process-scoped rules.
	Message string `yaml:"message"`

	// Solution is the suggested remedy, same template rules as Message.
	Solution string `yaml:"solution"`

	// Severity ranks the finding, 1 (informational) to 10 (critical).
	Severity int `yaml:"severity"`

	// Category gates visibility. Empty means the rule participates in
	// every scan; a named category (e.g. "gaming") is evaluated only
	// when that view is explicitly requested.
	Category string `yaml:"category"`

	// AutoFix is an optional remediation command line. It is validated
	// against the auto-fix allow-list at execution time, never run
	// through a shell.
	AutoFix string `yaml:"auto_fix"`

	compiled Trigger
}

// Compiled returns the rule's compiled trigger expression.
func (r *Rule) Compiled() Trigger { return r.compiled }

// Set is a validated, immutable collection of rules.
type Set struct {
	rules []Rule
	hash  [32]byte
}

// document is the on-disk shape of a rules file.
type document struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads and validates a rules document. Files ending in .jsonc or
// .json are converted to plain JSON first; everything else is parsed
// as YAML (which subsumes JSON, so the conversion only strips comments
// and trailing commas).
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json":
		data = jsonc.ToJSON(data)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// LoadDefault parses the embedded default rule set. An error here is a
// build defect, not a runtime condition, but it is still returned
// rather than panicking so callers keep a single error path.
func LoadDefault() (*Set, error) {
	return Parse(defaultDocument)
}

// Parse validates a rules document from raw bytes. Validation is
// fail-fast: the first invalid record aborts the load with the rule
// name and reason, and no partial set is returned.
func Parse(data []byte) (*Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules document: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules document contains no rules")
	}

	seen := make(map[string]bool, len(doc.Rules))
	for i := range doc.Rules {
		rule := &doc.Rules[i]
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %d: name is empty", i+1)
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", rule.Name)
		}
		seen[rule.Name] = true

		if rule.Severity < 1 || rule.Severity > 10 {
			return nil, fmt.Errorf("rule %q: severity %d out of range [1,10]", rule.Name, rule.Severity)
		}
		if rule.Message == "" {
			return nil, fmt.Errorf("rule %q: message is empty", rule.Name)
		}

		compiled, err := ParseTrigger(rule.Trigger)
		if err != nil {
			return nil, fmt.Errorf("rule %q: trigger %q: %w", rule.Name, rule.Trigger, err)
		}
		rule.compiled = compiled
	}

	return &Set{rules: doc.Rules, hash: blake3.Sum256(data)}, nil
}

// Rules returns the rules in document order. The returned slice must
// not be modified.
func (s *Set) Rules() []Rule { return s.rules }

// Len returns the number of rules in the set.
func (s *Set) Len() int { return len(s.rules) }

// Find returns the rule with the given name, or nil.
func (s *Set) Find(name string) *Rule {
	for i := range s.rules {
		if s.rules[i].Name == name {
			return &s.rules[i]
		}
	}
	return nil
}

// Hash returns the BLAKE3 hex digest of the rules document as loaded.
// History records carry it so a past finding can be tied to the exact
// rule set that produced it.
func (s *Set) Hash() string {
	return hex.EncodeToString(s.hash[:])
}
