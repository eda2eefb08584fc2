// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "why",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "gaming",
				Run: func(args []string) error {
					called = "gaming"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"gaming"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "gaming" {
		t.Errorf("dispatched to %q, want %q", called, "gaming")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "why",
		Subcommands: []*Command{
			{
				Name: "rules",
				Subcommands: []*Command{
					{
						Name: "check",
						Run: func(args []string) error {
							called = "rules check"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"rules", "check", "custom.yaml"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "rules check" {
		t.Errorf("dispatched to %q, want %q", called, "rules check")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "custom.yaml" {
		t.Errorf("args = %v, want [custom.yaml]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var rulesPath string
	var target string

	command := &Command{
		Name: "scan",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("scan", pflag.ContinueOnError)
			flagSet.StringVar(&rulesPath, "rules", "", "rules document path")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--rules", "custom.yaml", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if rulesPath != "custom.yaml" {
		t.Errorf("rulesPath = %q, want %q", rulesPath, "custom.yaml")
	}
	if target != "extra" {
		t.Errorf("target = %q, want %q", target, "extra")
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "why",
		Subcommands: []*Command{
			{Name: "watch", Run: func([]string) error { return nil }},
			{Name: "history", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"wtach"})
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `"watch"`) {
		t.Errorf("error %q does not suggest watch", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "scan",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("scan", pflag.ContinueOnError)
			flagSet.Bool("fix", false, "offer auto-fixes")
			flagSet.String("rules", "", "rules document path")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--fixx"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--fix") {
		t.Errorf("error %q does not suggest --fix", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name: "rules",
		Subcommands: []*Command{
			{Name: "check", Summary: "validate a rules document", Run: func([]string) error { return nil }},
		},
	}

	if err := root.Execute(nil); err == nil {
		t.Fatal("expected error when no subcommand given")
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:        "why",
		Description: "Explain what is wrong with this machine.",
		Subcommands: []*Command{
			{Name: "watch", Summary: "live diagnostic view"},
			{Name: "history", Summary: "show recorded passes"},
		},
		Examples: []Example{
			{Description: "Run a one-shot scan", Command: "why"},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	help := buffer.String()

	for _, want := range []string{"watch", "live diagnostic view", "history", "Examples:", "why <command>"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"watch", "watch", 0},
		{"wtach", "watch", 2},
		{"scn", "scan", 1},
		{"history", "", 7},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCommand_Execute_VersionFlagBeforeDispatch(t *testing.T) {
	ran := false
	root := &Command{
		Name:    "why",
		Version: "1.2.3 (abc1234, 2026-08-30)",
		Run: func(args []string) error {
			ran = true
			return nil
		},
	}

	if err := root.Execute([]string{"--version"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if ran {
		t.Error("Run should not execute when --version is handled")
	}

	if err := root.Execute([]string{"-V"}); err != nil {
		t.Fatalf("Execute() error for -V: %v", err)
	}
}

func TestCommand_Execute_VersionFlagUnknownWithoutVersion(t *testing.T) {
	sub := &Command{
		Name: "scan",
		Flags: func() *pflag.FlagSet {
			return pflag.NewFlagSet("scan", pflag.ContinueOnError)
		},
		Run: func(args []string) error { return nil },
	}

	err := sub.Execute([]string{"--version"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("expected unknown flag error, got %v", err)
	}
}
