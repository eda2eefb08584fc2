// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Runner executes an external tool and returns its stdout. A non-nil
// error covers both "tool missing" and "tool failed"; callers treat
// either as no value.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// cLocaleRunner runs the tool with LC_ALL=C and LANG=C so numeric
// output uses "." decimals regardless of the host locale. Tools that
// ignore the override are caught downstream by numparse.
func cLocaleRunner(ctx context.Context, name string, args ...string) (string, error) {
	command := exec.CommandContext(ctx, name, args...)
	command.Env = append(os.Environ(), "LC_ALL=C", "LANG=C")

	var stdout bytes.Buffer
	command.Stdout = &stdout
	if err := command.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// lookPath reports whether a tool is on PATH. Injectable for tests.
func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
