// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/whydiag/why/cmd/why/cli"
	"github.com/whydiag/why/lib/autofix"
	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/collect"
	"github.com/whydiag/why/lib/config"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/history"
	"github.com/whydiag/why/lib/metric"
	"github.com/whydiag/why/lib/rules"
)

// scanOptions are the shared flags of the scan-shaped commands (the
// default scan and the gaming view).
type scanOptions struct {
	rulesPath string
	dbPath    string
	fix       bool
	jsonOut   bool
	noColor   bool
	noHistory bool
	verbose   bool
}

func scanFlags(name string, opts *scanOptions) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flagSet.StringVar(&opts.rulesPath, "rules", "", "path to a custom rules document (YAML or JSONC)")
		flagSet.StringVar(&opts.dbPath, "db", "", "path to the history database (default: XDG data dir)")
		flagSet.BoolVar(&opts.fix, "fix", false, "offer to run allow-listed fixes for findings that have one")
		flagSet.BoolVar(&opts.jsonOut, "json", false, "print findings as JSON instead of styled text")
		flagSet.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
		flagSet.BoolVar(&opts.noHistory, "no-history", false, "do not record this pass in the history database")
		flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose diagnostic logging")
		return flagSet
	}
}

func scanCommand() *cli.Command {
	opts := &scanOptions{}
	return &cli.Command{
		Name:    "scan",
		Summary: "run one diagnostic pass (the default)",
		Description: "Collect a metric snapshot, evaluate the rules document against\n" +
			"it, and print the findings ordered by severity.",
		Examples: []cli.Example{
			{Description: "Run a one-shot scan", Command: "why"},
			{Description: "Scan with a custom rules document", Command: "why scan --rules ./rules.yaml"},
			{Description: "Offer allow-listed fixes", Command: "why scan --fix"},
		},
		Flags: scanFlags("scan", opts),
		Run: func(args []string) error {
			return runScan(opts, engine.DefaultVisibility(), false)
		},
	}
}

func gamingCommand() *cli.Command {
	opts := &scanOptions{}
	return &cli.Command{
		Name:    "gaming",
		Summary: "diagnostic pass including the gaming rules",
		Description: "Run a scan with the gaming category enabled: GPU temperature\n" +
			"and utilization, VRAM pressure, Proton crash markers, Vulkan\n" +
			"loader presence, and PRIME offload state.",
		Examples: []cli.Example{
			{Description: "Check gaming health", Command: "why gaming"},
		},
		Flags: scanFlags("gaming", opts),
		Run: func(args []string) error {
			return runScan(opts, engine.WithCategories("gaming"), true)
		},
	}
}

// runScan is the shared implementation of the one-shot commands.
func runScan(opts *scanOptions, visibility engine.Visibility, includeGPU bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureColor(opts.noColor || cfg.Color == "never")
	logger := cli.NewCommandLogger(opts.verbose)

	rulesPath := opts.rulesPath
	if rulesPath == "" {
		rulesPath = cfg.Rules.Path
	}
	set, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collector := collect.New()
	started := time.Now()
	snapshot := collector.Collect(ctx, includeGPU)
	logger.Debug("snapshot collected",
		"keys", len(snapshot.Keys()),
		"processes", len(snapshot.Processes()),
		"elapsed", time.Since(started),
	)

	findings := engine.Correlate(engine.Evaluate(snapshot, set, visibility))
	if opts.jsonOut {
		if err := printFindingsJSON(os.Stdout, findings); err != nil {
			return err
		}
	} else {
		printFindings(os.Stdout, findings)
	}

	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = cfg.History.Path
	}
	if !opts.noHistory && cfg.HistoryEnabled() {
		if err := recordPass(ctx, logger, dbPath, set.Hash(), findings, snapshot); err != nil {
			// History is best-effort; the scan already succeeded.
			logger.Warn("history not recorded", "error", err)
		}
	}

	if opts.fix {
		if err := offerFixes(ctx, logger, set, findings); err != nil {
			return err
		}
	}

	if len(findings) > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// loadRules loads the document at path, or the embedded default set
// when path is empty.
func loadRules(path string) (*rules.Set, error) {
	if path == "" {
		return rules.LoadDefault()
	}
	return rules.Load(path)
}

// recordPass appends the pass to the history database, creating its
// directory on first use.
func recordPass(ctx context.Context, logger *slog.Logger, pathOverride, rulesHash string, findings []engine.Finding, snapshot *metric.Snapshot) error {
	store, err := openHistory(logger, pathOverride)
	if err != nil {
		return err
	}
	defer store.Close()

	passID, err := store.RecordPass(ctx, rulesHash, findings, snapshot)
	if err != nil {
		return err
	}
	logger.Debug("pass recorded", "pass_id", passID, "findings", len(findings))
	return nil
}

// offerFixes walks the findings that carry an auto-fix command and
// prompts for each one. Non-interactive sessions decline everything.
func offerFixes(ctx context.Context, logger *slog.Logger, set *rules.Set, findings []engine.Finding) error {
	gate := autofix.NewGate()
	reader := bufio.NewReader(os.Stdin)
	interactive := cli.Interactive()

	for i := range findings {
		finding := &findings[i]
		if finding.AutoFix == "" {
			continue
		}
		rule := set.Find(finding.Rule)
		if rule == nil {
			continue
		}

		confirmed := false
		if interactive {
			fmt.Printf("run fix for %s? [%s] (y/N): ", finding.Rule, finding.AutoFix)
			line, err := reader.ReadString('\n')
			if err == nil {
				answer := strings.ToLower(strings.TrimSpace(line))
				confirmed = answer == "y" || answer == "yes"
			}
		}

		outcome := gate.Attempt(ctx, rule, confirmed)
		switch outcome.Kind {
		case autofix.Executed:
			fmt.Printf("  %s: %s\n", finding.Rule, outcome)
		case autofix.Declined:
			fmt.Printf("  %s: skipped\n", finding.Rule)
		case autofix.Rejected:
			logger.Warn("auto-fix rejected", "rule", finding.Rule, "reason", outcome.Reason)
			fmt.Printf("  %s: %s\n", finding.Rule, outcome)
		}
	}
	return nil
}

// historyPath returns the history database location, creating parent
// directories as needed. An override from the config file wins over
// the XDG default.
func historyPath(override string) (string, error) {
	if override != "" {
		if err := os.MkdirAll(filepath.Dir(override), 0o755); err != nil {
			return "", fmt.Errorf("creating history directory: %w", err)
		}
		return override, nil
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(dataHome, "why")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating history directory: %w", err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// openHistory opens the per-user history store.
func openHistory(logger *slog.Logger, pathOverride string) (*history.Store, error) {
	path, err := historyPath(pathOverride)
	if err != nil {
		return nil, err
	}
	return history.Open(history.StoreConfig{
		Path:   path,
		Clock:  clock.Real(),
		Logger: logger,
	})
}
