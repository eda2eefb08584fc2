// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package autofix is the single place in the codebase that executes a
// remediation command. Every command must match a build-time allow-list
// of program and argument patterns, is screened for shell
// metacharacters regardless of allow-list membership, and is started
// as a direct process — never through a shell — so injection is
// impossible by construction. Fail-closed: anything that does not
// match is rejected, never run.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/whydiag/why/lib/rules"
)

// OutcomeKind discriminates the result of an Attempt.
type OutcomeKind int

const (
	// Rejected means the command failed validation and was never run.
	Rejected OutcomeKind = iota
	// Declined means the command was valid but the caller did not
	// confirm execution.
	Declined
	// Executed means the command ran; Outcome.ExitCode holds its
	// status.
	Executed
)

// Outcome is the result of one Attempt.
type Outcome struct {
	Kind OutcomeKind

	// Reason explains a rejection. Empty otherwise.
	Reason string

	// ExitCode is the command's exit status when Kind is Executed.
	// Non-zero exit is an Executed outcome, not an engine error.
	ExitCode int
}

// String renders the outcome for logs and CLI display.
func (o Outcome) String() string {
	switch o.Kind {
	case Executed:
		return fmt.Sprintf("executed (exit %d)", o.ExitCode)
	case Declined:
		return "declined"
	default:
		return "rejected: " + o.Reason
	}
}

// Pattern is one allow-list entry: an exact program name plus the
// enumerated flags it may receive. Non-flag arguments are restricted
// to the safe character class (letters, digits, and `_-./:`)
// independent of the pattern.
type Pattern struct {
	Program string
	Flags   []string
}

func (p Pattern) allowsFlag(flag string) bool {
	for _, allowed := range p.Flags {
		if flag == allowed {
			return true
		}
	}
	return false
}

// defaultAllowlist is the build-time set of remediation commands rules
// may reference. Deliberately small: cleanup and service-restart
// operations with no destructive reach beyond their own domain.
var defaultAllowlist = []Pattern{
	{Program: "flatpak", Flags: []string{"--unused", "-y", "--assumeyes"}},
	{Program: "docker", Flags: []string{"-f", "--force"}},
	{Program: "snap", Flags: []string{"--purge"}},
	{Program: "systemctl", Flags: []string{"--user", "--now"}},
	{Program: "nmcli", Flags: nil},
}

// Runner starts program with args and returns its exit code. Split out
// so tests can observe execution without spawning processes.
type Runner func(ctx context.Context, program string, args []string) (int, error)

// Gate validates and executes auto-fix commands.
type Gate struct {
	allowlist []Pattern
	run       Runner
}

// NewGate returns a Gate using the build-time allow-list and direct
// process execution.
func NewGate() *Gate {
	return &Gate{allowlist: defaultAllowlist, run: execRunner}
}

// NewGateWith returns a Gate with a custom allow-list and runner, for
// tests.
func NewGateWith(allowlist []Pattern, run Runner) *Gate {
	return &Gate{allowlist: allowlist, run: run}
}

// Attempt validates rule's auto-fix command and, if the caller
// confirmed, executes it. The outcome is always one of Rejected (with
// a reason), Declined, or Executed (with the exit code).
func (g *Gate) Attempt(ctx context.Context, rule *rules.Rule, confirmed bool) Outcome {
	if rule == nil || rule.AutoFix == "" {
		return Outcome{Kind: Rejected, Reason: "rule has no auto-fix command"}
	}

	program, args, err := validate(rule.AutoFix, g.allowlist)
	if err != nil {
		return Outcome{Kind: Rejected, Reason: err.Error()}
	}
	if !confirmed {
		return Outcome{Kind: Declined}
	}

	exitCode, err := g.run(ctx, program, args)
	if err != nil {
		return Outcome{Kind: Rejected, Reason: fmt.Sprintf("starting %s: %v", program, err)}
	}
	return Outcome{Kind: Executed, ExitCode: exitCode}
}

// validate splits and screens a command line. The metacharacter screen
// runs first and applies to the raw string, so a command is rejected
// for containing `;` or `../` even when its base program is
// allow-listed.
func validate(raw string, allowlist []Pattern) (string, []string, error) {
	if strings.ContainsAny(raw, ";|&`$(){}<>*?!'\"\\\n") {
		return "", nil, fmt.Errorf("shell metacharacters are not permitted")
	}
	if strings.Contains(raw, "../") {
		return "", nil, fmt.Errorf("path traversal is not permitted")
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	program, args := fields[0], fields[1:]

	pattern, found := findPattern(program, allowlist)
	if !found {
		return "", nil, fmt.Errorf("not in whitelist")
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			if !pattern.allowsFlag(arg) {
				return "", nil, fmt.Errorf("flag %q is not permitted for %s", arg, program)
			}
			continue
		}
		if !safeArgument(arg) {
			return "", nil, fmt.Errorf("argument %q contains unsafe characters", arg)
		}
	}
	return program, args, nil
}

func findPattern(program string, allowlist []Pattern) (Pattern, bool) {
	for _, pattern := range allowlist {
		if pattern.Program == program {
			return pattern, true
		}
	}
	return Pattern{}, false
}

// safeArgument restricts non-flag arguments to letters, digits, and
// `_-./:`.
func safeArgument(arg string) bool {
	if arg == "" {
		return false
	}
	for _, r := range arg {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.' || r == '/' || r == ':':
		default:
			return false
		}
	}
	return true
}

// execRunner starts the command directly via argv. No shell is ever
// involved.
func execRunner(ctx context.Context, program string, args []string) (int, error) {
	command := exec.CommandContext(ctx, program, args...)
	if err := command.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return exitError.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}
