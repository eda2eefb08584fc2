// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"sort"
	"strings"
)

// Well-known metric keys. Collectors publish under these names and the
// default rule set references them. Rules may also reference keys that
// no collector publishes; those evaluate as Absent.
const (
	KeyCPU              = "cpu"
	KeyMem              = "mem"
	KeyTotalRAM         = "total_ram"
	KeyDiskFull         = "disk_full"
	KeyFilesystem       = "filesystem"
	KeyTemperature      = "temp"
	KeyFanSpeed         = "fan_speed"
	KeyBatteryDrain     = "battery_drain"
	KeyWifiConnected    = "wifi_connected"
	KeyWifiSignal       = "wifi_signal"
	KeyWifiChannelCount = "wifi_channel_count"
	KeySessionType      = "session_type"
	KeySnapLoops        = "snap_loops"
	KeyFlatpakUnused    = "flatpak_unused"
	KeyDockerDangling   = "docker_dangling"
	KeyZFSArcFull       = "zfs_arc_full"
	KeyLUKSDevices      = "luks_devices"
	KeyProcessCount     = "process_count"

	KeyGPUVendor  = "gpu_vendor"
	KeyGPUTemp    = "gpu_temp"
	KeyGPUUtil    = "gpu_util"
	KeyGPUMemUtil = "gpu_mem_util"

	KeyPrimeOffload     = "prime_offload"
	KeyGamescopeRunning = "gamescope_running"
	KeySteamRunning     = "steam_running"
	KeyProtonFailures   = "proton_failures"
	KeyVulkanMissing    = "vulkan_loader_missing"
)

// Process-scoped keys, valid inside a ProcessSample sub-snapshot. A
// trigger that references any of these is matched per process record:
// all process conditions of the rule must hold against the same record.
const (
	KeyProcess     = "process"
	KeyProcessName = "process_name"
	KeyProcessCPU  = "process_cpu"
	KeyProcessMem  = "process_mem"
)

// IsProcessKey reports whether key is resolved against per-process
// sub-snapshots rather than the top-level map. KeyProcessCount is a
// top-level aggregate despite the prefix, so prefix matching alone is
// not enough.
func IsProcessKey(key string) bool {
	switch key {
	case KeyProcess, KeyProcessName, KeyProcessCPU, KeyProcessMem:
		return true
	}
	return false
}

// ProcessSample is one per-process sub-snapshot. Name is stored
// lowercased so text triggers match case-insensitively by construction
// (`process~chrome` matches "Chrome_ChildIOT").
type ProcessSample struct {
	// Name is the lowercased executable name (from /proc/<pid>/comm).
	Name string
	// CPUPercent is the process CPU share over its lifetime.
	CPUPercent float64
	// MemPercent is resident memory as a share of total RAM.
	MemPercent float64
}

// Lookup resolves a process-scoped key against this sample. Unknown
// keys resolve to Absent.
func (p ProcessSample) Lookup(key string) Value {
	switch key {
	case KeyProcess, KeyProcessName:
		return Text(p.Name)
	case KeyProcessCPU:
		return Number(p.CPUPercent)
	case KeyProcessMem:
		return Number(p.MemPercent)
	}
	return Absent()
}

// Snapshot is the immutable metric state one evaluation pass runs
// against. Construct with NewSnapshot; after construction it is
// read-only (the constructor copies its inputs, and no mutating
// methods exist).
type Snapshot struct {
	values    map[string]Value
	processes []ProcessSample
}

// NewSnapshot builds a Snapshot from a key/value map and per-process
// sub-snapshots. Both inputs are copied; the caller may reuse them.
// Absent entries in values are permitted and equivalent to missing
// keys.
func NewSnapshot(values map[string]Value, processes []ProcessSample) *Snapshot {
	copied := make(map[string]Value, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return &Snapshot{
		values:    copied,
		processes: append([]ProcessSample(nil), processes...),
	}
}

// Get returns the value for key. Missing keys return Absent.
func (s *Snapshot) Get(key string) Value {
	if s == nil {
		return Absent()
	}
	return s.values[key]
}

// Processes returns the per-process sub-snapshots in collection order.
// The returned slice must not be modified.
func (s *Snapshot) Processes() []ProcessSample {
	if s == nil {
		return nil
	}
	return s.processes
}

// Keys returns the present (non-Absent) keys in sorted order. Used by
// debug output and snapshot export.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for key, value := range s.values {
		if !value.IsAbsent() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// FindProcess returns the first process whose name contains needle
// (which is lowercased before matching), or false if none does.
func (s *Snapshot) FindProcess(needle string) (ProcessSample, bool) {
	lowered := strings.ToLower(needle)
	for _, process := range s.processes {
		if strings.Contains(process.Name, lowered) {
			return process, true
		}
	}
	return ProcessSample{}, false
}
