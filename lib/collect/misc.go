// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// readSessionType reports the desktop session type (x11 or wayland)
// from the login environment.
func readSessionType(env func(string) string) (string, bool) {
	if value := env("XDG_SESSION_TYPE"); value != "" {
		return strings.ToLower(value), true
	}
	if env("WAYLAND_DISPLAY") != "" {
		return "wayland", true
	}
	if env("DISPLAY") != "" {
		return "x11", true
	}
	return "", false
}

// readZFSArcFill returns the ZFS ARC fill ratio as a percentage of its
// target size, from <root>/proc/spl/kstat/zfs/arcstats. Machines
// without ZFS report false.
func readZFSArcFill(root string) (float64, bool) {
	data, err := os.ReadFile(filepath.Join(root, "proc/spl/kstat/zfs/arcstats"))
	if err != nil {
		return 0, false
	}

	var size, target float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "size":
			size = value
		case "c":
			target = value
		}
	}
	if target == 0 {
		return 0, false
	}
	return size / target * 100, true
}

// countLUKSDevices counts open dm-crypt mappings via lsblk.
func countLUKSDevices(ctx context.Context, run Runner) (int, bool) {
	output, err := run(ctx, "lsblk", "-rno", "TYPE")
	if err != nil {
		return 0, false
	}
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "crypt" {
			count++
		}
	}
	return count, true
}

// countDanglingDockerImages counts untagged image layers left behind
// by rebuilds. A missing or stopped docker daemon reports false.
func countDanglingDockerImages(ctx context.Context, run Runner) (int, bool) {
	output, err := run(ctx, "docker", "images", "-f", "dangling=true", "-q")
	if err != nil {
		return 0, false
	}
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, true
}

// countUnusedFlatpakRuntimes counts runtimes no installed application
// references.
func countUnusedFlatpakRuntimes(ctx context.Context, run Runner) (int, bool) {
	output, err := run(ctx, "flatpak", "list", "--runtime", "--columns=application")
	if err != nil {
		return 0, false
	}
	installed := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			installed++
		}
	}
	if installed == 0 {
		return 0, true
	}

	// `flatpak uninstall --unused` with no confirmation input prints
	// the removal candidates and aborts, which is the only way the CLI
	// exposes the unused set without changing anything.
	preview, err := run(ctx, "flatpak", "uninstall", "--unused", "--no-related", "--assumeno")
	if err != nil {
		return 0, true
	}
	unused := 0
	for _, line := range strings.Split(preview, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "org.") && strings.Contains(trimmed, "/x86_64/") {
			unused++
		}
	}
	return unused, true
}
