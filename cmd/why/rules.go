// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/whydiag/why/cmd/why/cli"
	"github.com/whydiag/why/lib/rules"
)

func rulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "rules",
		Summary: "inspect and validate rule documents",
		Subcommands: []*cli.Command{
			rulesListCommand(),
			rulesCheckCommand(),
		},
	}
}

func rulesListCommand() *cli.Command {
	var rulesPath string
	return &cli.Command{
		Name:    "list",
		Summary: "list the rules a scan would evaluate",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&rulesPath, "rules", "", "path to a rules document (default: built in)")
			return flagSet
		},
		Run: func(args []string) error {
			set, err := loadRules(rulesPath)
			if err != nil {
				return err
			}
			for _, rule := range set.Rules() {
				fmt.Printf("%-28s severity %2d  %s\n", rule.Name, rule.Severity, rule.Trigger)
			}
			return nil
		},
	}
}

func rulesCheckCommand() *cli.Command {
	return &cli.Command{
		Name:    "check",
		Summary: "validate a rules document",
		Usage:   "why rules check <path>",
		Description: "Parse the given rules document and compile every trigger.\n" +
			"Exits nonzero if the document is malformed.",
		Examples: []cli.Example{
			{Description: "Validate a custom document", Command: "why rules check ./my-rules.yaml"},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one path, got %d arguments", len(args))
			}
			set, err := rules.Load(args[0])
			if err != nil {
				fmt.Printf("invalid: %v\n", err)
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("ok: %d rules, hash %.16s\n", set.Len(), set.Hash())
			return nil
		},
	}
}
