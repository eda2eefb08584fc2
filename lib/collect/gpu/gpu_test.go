// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func noTool(string) bool { return false }

func noRun(ctx context.Context, name string, args ...string) (string, error) {
	return "", errors.New("unexpected exec")
}

func TestProbeNvidia(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) (string, error) {
		if name != "nvidia-smi" {
			t.Fatalf("unexpected tool %q", name)
		}
		return "67, 83, 6144, 8192\n", nil
	}
	prober := NewProberAt(t.TempDir(), run, func(string) bool { return true })

	info, ok := prober.Probe(context.Background())
	if !ok {
		t.Fatal("expected a GPU")
	}
	if info.Vendor != "nvidia" {
		t.Fatalf("vendor = %q", info.Vendor)
	}
	if info.TempCelsius == nil || *info.TempCelsius != 67 {
		t.Fatalf("temp = %v", info.TempCelsius)
	}
	if info.UtilPercent == nil || *info.UtilPercent != 83 {
		t.Fatalf("util = %v", info.UtilPercent)
	}
	if info.MemUtilPercent == nil || math.Abs(*info.MemUtilPercent-75) > 0.01 {
		t.Fatalf("memUtil = %v", info.MemUtilPercent)
	}
}

func TestProbeSysfsAMD(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sys/class/drm/card0/device/vendor":                   "0x1002\n",
		"sys/class/drm/card0/device/gpu_busy_percent":         "42\n",
		"sys/class/drm/card0/device/mem_info_vram_used":       "2147483648\n",
		"sys/class/drm/card0/device/mem_info_vram_total":      "8589934592\n",
		"sys/class/drm/card0/device/hwmon/hwmon3/temp1_input": "74000\n",
	})
	prober := NewProberAt(root, noRun, noTool)

	info, ok := prober.Probe(context.Background())
	if !ok {
		t.Fatal("expected a GPU")
	}
	if info.Vendor != "amd" {
		t.Fatalf("vendor = %q", info.Vendor)
	}
	if info.TempCelsius == nil || *info.TempCelsius != 74 {
		t.Fatalf("temp = %v", info.TempCelsius)
	}
	if info.UtilPercent == nil || *info.UtilPercent != 42 {
		t.Fatalf("util = %v", info.UtilPercent)
	}
	if info.MemUtilPercent == nil || math.Abs(*info.MemUtilPercent-25) > 0.01 {
		t.Fatalf("memUtil = %v", info.MemUtilPercent)
	}
}

func TestProbeSysfsIntelPartialSensors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sys/class/drm/card0/device/vendor": "0x8086\n",
	})
	prober := NewProberAt(root, noRun, noTool)

	info, ok := prober.Probe(context.Background())
	if !ok {
		t.Fatal("expected a GPU")
	}
	if info.Vendor != "intel" {
		t.Fatalf("vendor = %q", info.Vendor)
	}
	if info.TempCelsius != nil || info.UtilPercent != nil || info.MemUtilPercent != nil {
		t.Fatal("i915 exports none of these, all must be nil")
	}
}

func TestProbeNoGPU(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sys/class/drm/card0/device/vendor": "0xdead\n",
	})
	prober := NewProberAt(root, noRun, noTool)
	if _, ok := prober.Probe(context.Background()); ok {
		t.Fatal("unknown vendor should report no GPU")
	}
}

func TestProbeNvidiaFallsBackToSysfs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sys/class/drm/card0/device/vendor": "0x10de\n",
	})
	// nvidia-smi on PATH but failing (driver/library mismatch).
	run := func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("NVML library version mismatch")
	}
	prober := NewProberAt(root, run, func(string) bool { return true })

	info, ok := prober.Probe(context.Background())
	if !ok || info.Vendor != "nvidia" {
		t.Fatalf("got %+v, %v", info, ok)
	}
}
