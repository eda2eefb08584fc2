// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// memReading holds the two /proc/meminfo numbers the rules care about.
type memReading struct {
	totalKB     uint64
	availableKB uint64
}

// usedPercent is (total - available) / total. MemAvailable is the
// kernel's own estimate of reclaimable memory, so page cache does not
// count as "used".
func (m memReading) usedPercent() float64 {
	if m.totalKB == 0 {
		return 0
	}
	used := m.totalKB - m.availableKB
	return float64(used) / float64(m.totalKB) * 100
}

func (m memReading) totalMB() float64 {
	return float64(m.totalKB) / 1024
}

// readMemInfo parses MemTotal and MemAvailable from
// <root>/proc/meminfo. Returns nil if either line is missing or
// malformed.
func readMemInfo(root string) *memReading {
	file, err := os.Open(filepath.Join(root, "proc/meminfo"))
	if err != nil {
		return nil
	}
	defer file.Close()

	var reading memReading
	var haveTotal, haveAvailable bool

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			reading.totalKB = value
			haveTotal = true
		case "MemAvailable:":
			reading.availableKB = value
			haveAvailable = true
		}
		if haveTotal && haveAvailable {
			break
		}
	}

	if !haveTotal || !haveAvailable || reading.availableKB > reading.totalKB {
		return nil
	}
	return &reading
}
