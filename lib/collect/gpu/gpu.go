// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package gpu probes the primary GPU for vendor, temperature, and
// utilization. NVIDIA cards are read through nvidia-smi; AMD and
// Intel cards through the amdgpu/i915 sysfs interfaces. All fields
// besides the vendor are optional: a headless card or a driver that
// does not export a given sensor simply leaves it nil.
package gpu

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/whydiag/why/lib/numparse"
)

// Info is one GPU reading. Nil pointer fields mean the driver did not
// expose that sensor.
type Info struct {
	Vendor         string
	TempCelsius    *float64
	UtilPercent    *float64
	MemUtilPercent *float64
}

// Runner executes an external probe tool, matching collect.Runner.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Prober reads GPU state from a rooted sysfs tree and an external
// tool runner. The zero root means "/".
type Prober struct {
	root     string
	run      Runner
	lookPath func(string) bool
}

// NewProber returns a Prober reading the real system through run.
func NewProber(run Runner, lookPath func(string) bool) *Prober {
	return &Prober{root: "/", run: run, lookPath: lookPath}
}

// NewProberAt is NewProber with a synthetic filesystem root, for tests.
func NewProberAt(root string, run Runner, lookPath func(string) bool) *Prober {
	return &Prober{root: root, run: run, lookPath: lookPath}
}

// Probe returns the primary GPU's state, preferring nvidia-smi when
// present and falling back to sysfs. ok is false when no GPU is found.
func (p *Prober) Probe(ctx context.Context) (Info, bool) {
	if p.lookPath != nil && p.lookPath("nvidia-smi") {
		if info, ok := p.probeNvidia(ctx); ok {
			return info, true
		}
	}
	return p.probeSysfs()
}

// probeNvidia parses one CSV line of nvidia-smi query output:
// temperature, GPU utilization percent, memory used, memory total.
func (p *Prober) probeNvidia(ctx context.Context) (Info, bool) {
	output, err := p.run(ctx, "nvidia-smi",
		"--query-gpu=temperature.gpu,utilization.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits")
	if err != nil {
		return Info{}, false
	}
	line := strings.TrimSpace(strings.Split(output, "\n")[0])
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return Info{}, false
	}

	info := Info{Vendor: "nvidia"}
	if temp, err := numparse.Parse(strings.TrimSpace(fields[0])); err == nil {
		info.TempCelsius = &temp
	}
	if util, err := numparse.Parse(strings.TrimSpace(fields[1])); err == nil {
		info.UtilPercent = &util
	}
	used, errUsed := numparse.Parse(strings.TrimSpace(fields[2]))
	total, errTotal := numparse.Parse(strings.TrimSpace(fields[3]))
	if errUsed == nil && errTotal == nil && total > 0 {
		memUtil := used / total * 100
		info.MemUtilPercent = &memUtil
	}
	return info, true
}

// probeSysfs scans <root>/sys/class/drm/card*/device for the first
// card with a recognized PCI vendor ID.
func (p *Prober) probeSysfs() (Info, bool) {
	cards, err := filepath.Glob(filepath.Join(p.root, "sys/class/drm/card[0-9]"))
	if err != nil {
		return Info{}, false
	}
	for _, card := range cards {
		deviceDir := filepath.Join(card, "device")
		vendor, ok := vendorName(readTrimmed(filepath.Join(deviceDir, "vendor")))
		if !ok {
			continue
		}

		info := Info{Vendor: vendor}
		if milli, ok := readNumber(hwmonPath(deviceDir, "temp1_input")); ok {
			celsius := milli / 1000
			info.TempCelsius = &celsius
		}
		if busy, ok := readNumber(filepath.Join(deviceDir, "gpu_busy_percent")); ok {
			info.UtilPercent = &busy
		}
		used, okUsed := readNumber(filepath.Join(deviceDir, "mem_info_vram_used"))
		total, okTotal := readNumber(filepath.Join(deviceDir, "mem_info_vram_total"))
		if okUsed && okTotal && total > 0 {
			memUtil := used / total * 100
			info.MemUtilPercent = &memUtil
		}
		return info, true
	}
	return Info{}, false
}

func vendorName(id string) (string, bool) {
	switch id {
	case "0x10de":
		return "nvidia", true
	case "0x1002":
		return "amd", true
	case "0x8086":
		return "intel", true
	}
	return "", false
}

// hwmonPath resolves a sensor file under the card's hwmon directory,
// whose single subdirectory name (hwmon0, hwmon3, ...) varies by boot.
func hwmonPath(deviceDir, sensor string) string {
	matches, err := filepath.Glob(filepath.Join(deviceDir, "hwmon", "hwmon*", sensor))
	if err != nil || len(matches) == 0 {
		return filepath.Join(deviceDir, "hwmon", "hwmon0", sensor)
	}
	return matches[0]
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readNumber(path string) (float64, bool) {
	raw := readTrimmed(path)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
