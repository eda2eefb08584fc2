// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/whydiag/why/lib/metric"
)

// processRunning reports whether any sample's name contains the given
// lowercase substring.
func processRunning(samples []metric.ProcessSample, substring string) bool {
	for _, sample := range samples {
		if strings.Contains(sample.Name, substring) {
			return true
		}
	}
	return false
}

// countProtonFailures counts Proton crash markers in the Steam logs
// under the user's home directory. Steam appends to content_log.txt
// across sessions, so the count is cumulative; the snapshot publishes
// it as a plain any-failures flag.
func countProtonFailures(home string) (int, bool) {
	logPath := filepath.Join(home, ".steam", "steam", "logs", "content_log.txt")
	data, err := os.ReadFile(logPath)
	if err != nil {
		logPath = filepath.Join(home, ".local", "share", "Steam", "logs", "content_log.txt")
		data, err = os.ReadFile(logPath)
		if err != nil {
			return 0, false
		}
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "proton") && (strings.Contains(lower, "crash") || strings.Contains(lower, "failed")) {
			count++
		}
	}
	return count, true
}

// vulkanLoaderMissing reports whether the Vulkan ICD loader is absent
// from the system library paths.
func vulkanLoaderMissing(root string) bool {
	candidates := []string{
		"usr/lib/x86_64-linux-gnu/libvulkan.so.1",
		"usr/lib64/libvulkan.so.1",
		"usr/lib/libvulkan.so.1",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
			return false
		}
	}
	return true
}

// primeOffloadState reports whether NVIDIA PRIME render offload is
// requested in the current environment, as the "enabled"/"disabled"
// pair the rule triggers compare against.
func primeOffloadState(env func(string) string) string {
	if env("__NV_PRIME_RENDER_OFFLOAD") == "1" {
		return "enabled"
	}
	return "disabled"
}
