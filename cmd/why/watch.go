// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/whydiag/why/cmd/why/cli"
	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/collect"
	"github.com/whydiag/why/lib/config"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/watch"
)

func watchCommand() *cli.Command {
	var (
		rulesPath string
		gaming    bool
		interval  time.Duration
	)
	return &cli.Command{
		Name:    "watch",
		Summary: "live full-screen diagnostic view",
		Description: "Continuously re-run the diagnostic pass and render the current\n" +
			"findings in a full-screen terminal view. Collection runs off the\n" +
			"interactive path, so a slow probe never blocks the keyboard.",
		Examples: []cli.Example{
			{Description: "Watch with the default 2s interval", Command: "why watch"},
			{Description: "Watch including gaming rules", Command: "why watch --gaming"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flagSet.StringVar(&rulesPath, "rules", "", "path to a custom rules document (YAML or JSONC)")
			flagSet.BoolVar(&gaming, "gaming", false, "include gaming-category rules")
			flagSet.DurationVar(&interval, "interval", 0, "time between passes (default: from config, 2s)")
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if interval <= 0 {
				if interval, err = cfg.WatchInterval(); err != nil {
					return err
				}
			}
			if rulesPath == "" {
				rulesPath = cfg.Rules.Path
			}
			set, err := loadRules(rulesPath)
			if err != nil {
				return err
			}
			visibility := engine.DefaultVisibility()
			if gaming {
				visibility = engine.WithCategories("gaming")
			}

			clk := clock.Real()
			collector := collect.New(collect.WithClock(clk))

			return watch.Run(context.Background(), watch.Config{
				Interval: interval,
				Clock:    clk,
				Collect: func(ctx context.Context) watch.Pass {
					snapshot := collector.Collect(ctx, gaming)
					findings := engine.Correlate(engine.Evaluate(snapshot, set, visibility))
					return watch.Pass{
						At:       clk.Now(),
						Snapshot: snapshot,
						Findings: findings,
					}
				},
			})
		},
	}
}
