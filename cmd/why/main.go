// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Command why diagnoses common Linux desktop problems.
//
// Invoked with no arguments it runs a single scan: collect a metric
// snapshot, evaluate the rules document, print findings by severity.
// Subcommands add a gaming-focused pass, a live watch view, history
// inspection, and rule document tooling.
package main

import (
	"fmt"
	"os"

	"github.com/whydiag/why/cmd/why/cli"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like scan) return an
		// ExitError with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	opts := &scanOptions{}
	return &cli.Command{
		Name:    "why",
		Summary: "diagnose common Linux desktop problems",
		Description: "why answers \"why is my machine slow / hot / broken\" by collecting\n" +
			"a snapshot of system metrics and evaluating a rules document\n" +
			"against it. With no subcommand it runs one scan.",
		Examples: []cli.Example{
			{Description: "Run a one-shot scan", Command: "why"},
			{Description: "Watch metrics live", Command: "why watch"},
			{Description: "Include the gaming rules", Command: "why gaming"},
		},
		Version: version.Info(),
		Flags: scanFlags("why", opts),
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q\n\nRun 'why --help' for usage.", args[0])
			}
			return runScan(opts, engine.DefaultVisibility(), false)
		},
		Subcommands: []*cli.Command{
			scanCommand(),
			gamingCommand(),
			watchCommand(),
			historyCommand(),
			rulesCommand(),
			versionCommand(),
		},
	}
}
