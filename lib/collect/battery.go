// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"os"
	"path/filepath"
	"strings"
)

// readBatteryDrain returns the discharge rate in watts of the first
// discharging battery under <root>/sys/class/power_supply, or false
// when on AC power or on a machine without a battery.
func readBatteryDrain(root string) (float64, bool) {
	supplyDir := filepath.Join(root, "sys/class/power_supply")
	entries, err := os.ReadDir(supplyDir)
	if err != nil {
		return 0, false
	}

	for _, entry := range entries {
		deviceDir := filepath.Join(supplyDir, entry.Name())
		if kind, ok := readSupplyString(deviceDir, "type"); !ok || kind != "Battery" {
			continue
		}
		if status, ok := readSupplyString(deviceDir, "status"); !ok || status != "Discharging" {
			continue
		}

		// power_now is microwatts; fall back to current_now times
		// voltage_now (both micro units) on drivers without it.
		if microwatts, ok := readSensorValue(filepath.Join(deviceDir, "power_now")); ok && microwatts > 0 {
			return microwatts / 1e6, true
		}
		current, okCurrent := readSensorValue(filepath.Join(deviceDir, "current_now"))
		voltage, okVoltage := readSensorValue(filepath.Join(deviceDir, "voltage_now"))
		if okCurrent && okVoltage && current > 0 && voltage > 0 {
			return current * voltage / 1e12, true
		}
	}
	return 0, false
}

func readSupplyString(deviceDir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(deviceDir, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
