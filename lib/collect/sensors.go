// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// readMaxTemperature scans <root>/sys/class/hwmon for temp*_input
// files and returns the hottest reading in degrees Celsius. Sensor
// files report millidegrees.
func readMaxTemperature(root string) (float64, bool) {
	hwmonDir := filepath.Join(root, "sys/class/hwmon")
	entries, err := os.ReadDir(hwmonDir)
	if err != nil {
		return 0, false
	}

	best := 0.0
	found := false
	for _, entry := range entries {
		deviceDir := filepath.Join(hwmonDir, entry.Name())
		inputs, err := filepath.Glob(filepath.Join(deviceDir, "temp*_input"))
		if err != nil {
			continue
		}
		for _, input := range inputs {
			milli, ok := readSensorValue(input)
			if !ok {
				continue
			}
			celsius := milli / 1000
			// Disconnected probes report 0 or large negatives.
			if celsius <= 0 || celsius > 150 {
				continue
			}
			if !found || celsius > best {
				best = celsius
				found = true
			}
		}
	}
	return best, found
}

// readMaxFanSpeed returns the fastest fan*_input reading in RPM across
// all hwmon devices under root.
func readMaxFanSpeed(root string) (float64, bool) {
	hwmonDir := filepath.Join(root, "sys/class/hwmon")
	entries, err := os.ReadDir(hwmonDir)
	if err != nil {
		return 0, false
	}

	best := 0.0
	found := false
	for _, entry := range entries {
		deviceDir := filepath.Join(hwmonDir, entry.Name())
		inputs, err := filepath.Glob(filepath.Join(deviceDir, "fan*_input"))
		if err != nil {
			continue
		}
		for _, input := range inputs {
			rpm, ok := readSensorValue(input)
			if !ok || rpm <= 0 {
				continue
			}
			if !found || rpm > best {
				best = rpm
				found = true
			}
		}
	}
	return best, found
}

func readSensorValue(path string) (float64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
