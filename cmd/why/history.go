// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/whydiag/why/cmd/why/cli"
	"github.com/whydiag/why/lib/config"
	"github.com/whydiag/why/lib/history"
)

func historyCommand() *cli.Command {
	var (
		limit     int
		dbPath    string
		noColor   bool
		snapshot  int64
		prune     bool
		olderThan time.Duration
	)
	return &cli.Command{
		Name:    "history",
		Summary: "show recorded diagnostic passes",
		Description: "List recent passes from the history database, newest first.\n" +
			"Each pass shows when it ran and what fired; --snapshot dumps the\n" +
			"metric snapshot stored with a specific pass.",
		Examples: []cli.Example{
			{Description: "Show the last 20 passes", Command: "why history"},
			{Description: "Inspect the snapshot of pass 42", Command: "why history --snapshot 42"},
			{Description: "Drop passes older than the retention window", Command: "why history --prune"},
			{Description: "Drop passes older than a week", Command: "why history --prune --older-than 168h"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			flagSet.IntVarP(&limit, "limit", "n", 20, "number of passes to show")
			flagSet.StringVar(&dbPath, "db", "", "path to the history database (default: XDG data dir)")
			flagSet.BoolVar(&noColor, "no-color", false, "disable colored output")
			flagSet.Int64Var(&snapshot, "snapshot", 0, "print the stored snapshot for the given pass ID")
			flagSet.BoolVar(&prune, "prune", false, "delete passes older than the retention window and exit")
			flagSet.DurationVar(&olderThan, "older-than", 0, "retention window for --prune (default: from config, 720h)")
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			configureColor(noColor || cfg.Color == "never")
			logger := cli.NewCommandLogger(false)

			if dbPath == "" {
				dbPath = cfg.History.Path
			}
			store, err := openHistory(logger, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()

			if prune {
				retention := olderThan
				if retention <= 0 {
					if retention, err = cfg.RetentionDuration(); err != nil {
						return err
					}
				}
				if retention <= 0 {
					return fmt.Errorf("no retention window: pass --older-than or set history.retention")
				}
				removed, err := store.Prune(ctx, retention)
				if err != nil {
					return err
				}
				fmt.Printf("removed %d passes\n", removed)
				return nil
			}

			if snapshot > 0 {
				return printStoredSnapshot(ctx, store, snapshot)
			}

			passes, err := store.RecentPasses(ctx, limit)
			if err != nil {
				return err
			}
			if len(passes) == 0 {
				fmt.Println("no recorded passes")
				return nil
			}

			for _, pass := range passes {
				fmt.Printf("#%d  %s  %d finding(s)  rules %.8s\n",
					pass.ID,
					pass.StartedAt.Format("2006-01-02 15:04:05"),
					pass.FindingCount,
					pass.RulesHash,
				)
				for _, finding := range pass.Findings {
					badge := severityStyle(finding.Severity).Render(fmt.Sprintf("[%d]", finding.Severity))
					fmt.Printf("    %s %s\n", badge, finding.Message)
				}
			}
			return nil
		},
	}
}

// printStoredSnapshot dumps one pass's metric snapshot as key/value
// lines, process samples last.
func printStoredSnapshot(ctx context.Context, store *history.Store, passID int64) error {
	snapshot, err := store.Snapshot(ctx, passID)
	if err != nil {
		return err
	}
	for _, key := range snapshot.Keys() {
		fmt.Fprintf(os.Stdout, "%-24s %s\n", key, snapshot.Get(key))
	}
	for _, process := range snapshot.Processes() {
		fmt.Fprintf(os.Stdout, "process %-16s cpu %.1f%%  mem %.1f%%\n",
			process.Name, process.CPUPercent, process.MemPercent)
	}
	return nil
}
