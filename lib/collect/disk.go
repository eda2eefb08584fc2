// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// diskUsedPercent returns the used share of the filesystem holding
// path, computed the way df does: used / (used + available), so
// root-reserved blocks do not make a full disk look 95% full.
func diskUsedPercent(path string) (float64, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false
	}

	total := stat.Blocks
	free := stat.Bfree
	available := stat.Bavail
	if total == 0 || free > total {
		return 0, false
	}

	used := total - free
	denominator := used + available
	if denominator == 0 {
		return 0, false
	}
	return float64(used) / float64(denominator) * 100, true
}

// rootFilesystem returns the filesystem type mounted at "/" from
// <root>/proc/mounts, or false if it cannot be determined.
func rootFilesystem(root string) (string, bool) {
	file, err := os.Open(filepath.Join(root, "proc/mounts"))
	if err != nil {
		return "", false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 3 && fields[1] == "/" {
			return fields[2], true
		}
	}
	return "", false
}

// snapLoopMounts counts active snap loop mounts in <root>/proc/mounts.
func snapLoopMounts(root string) (int, bool) {
	file, err := os.Open(filepath.Join(root, "proc/mounts"))
	if err != nil {
		return 0, false
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "/snap/") {
			count++
		}
	}
	return count, true
}
