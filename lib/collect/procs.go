// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/whydiag/why/lib/metric"
)

// userHertz is the kernel clock tick rate exposed through /proc. It
// has been 100 on every mainstream Linux architecture for decades and
// sysconf(_SC_CLK_TCK) is not reachable without cgo.
const userHertz = 100

// readProcesses scans <root>/proc for numeric directories and returns
// one sample per live process. CPU percent is the lifetime average
// (total tick time over process age), which is stable for a one-shot
// scan without a second sampling pass.
func readProcesses(root string) []metric.ProcessSample {
	entries, err := os.ReadDir(filepath.Join(root, "proc"))
	if err != nil {
		return nil
	}

	uptime, haveUptime := readUptime(root)
	totalKB := 0.0
	if mem := readMemInfo(root); mem != nil {
		totalKB = float64(mem.totalKB)
	}

	var samples []metric.ProcessSample
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}

		procDir := filepath.Join(root, "proc", entry.Name())
		name, ticks, startTicks, ok := readStat(procDir)
		if !ok {
			continue
		}

		sample := metric.ProcessSample{Name: strings.ToLower(name)}

		if haveUptime {
			age := uptime - float64(startTicks)/userHertz
			if age > 0 {
				sample.CPUPercent = float64(ticks) / userHertz / age * 100
			}
		}
		if totalKB > 0 {
			if rssKB, ok := readRSS(procDir); ok {
				sample.MemPercent = rssKB / totalKB * 100
			}
		}
		samples = append(samples, sample)
	}
	return samples
}

// readStat parses <procDir>/stat for the comm name, the combined
// utime+stime tick count, and the start time in ticks since boot. The
// comm field may contain spaces and parentheses, so fields are counted
// from the last ')'.
func readStat(procDir string) (name string, ticks, startTicks uint64, ok bool) {
	data, err := os.ReadFile(filepath.Join(procDir, "stat"))
	if err != nil {
		return "", 0, 0, false
	}
	line := string(data)

	open := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if open < 0 || end < open {
		return "", 0, 0, false
	}
	name = line[open+1 : end]

	// Fields after the comm, zero-indexed: state is field 0, utime is
	// field 11, stime is field 12, starttime is field 19.
	fields := strings.Fields(line[end+1:])
	if len(fields) < 20 {
		return "", 0, 0, false
	}
	utime, err1 := strconv.ParseUint(fields[11], 10, 64)
	stime, err2 := strconv.ParseUint(fields[12], 10, 64)
	start, err3 := strconv.ParseUint(fields[19], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", 0, 0, false
	}
	return name, utime + stime, start, true
}

// readRSS returns VmRSS from <procDir>/status in kilobytes. Kernel
// threads have no VmRSS line and report false.
func readRSS(procDir string) (float64, bool) {
	data, err := os.ReadFile(filepath.Join(procDir, "status"))
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, false
		}
		return kb, true
	}
	return 0, false
}

// readUptime returns seconds since boot from <root>/proc/uptime.
func readUptime(root string) (float64, bool) {
	data, err := os.ReadFile(filepath.Join(root, "proc/uptime"))
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return seconds, true
}
