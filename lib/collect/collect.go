// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"os"
	"time"

	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/collect/gpu"
	"github.com/whydiag/why/lib/metric"
	"github.com/whydiag/why/lib/probecache"
)

// gpuCacheTTL bounds how often the GPU is re-probed. nvidia-smi takes
// hundreds of milliseconds on some systems, which is too slow to run
// on every watch-mode refresh.
const gpuCacheTTL = 5 * time.Second

// Collector gathers one metric snapshot per call. All system access
// goes through the injected root path, runner, and environment lookup
// so tests can supply synthetic trees and canned command output.
type Collector struct {
	root     string
	run      Runner
	env      func(string) string
	home     string
	clk      clock.Clock
	cpu      *cpuSampler
	prober   *gpu.Prober
	gpuCache *probecache.Cache[gpuReading]
}

// gpuReading pairs a probe result with its found flag so the cache
// can hold "no GPU" as a value rather than re-probing every pass.
type gpuReading struct {
	info  gpu.Info
	found bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithRoot points all filesystem reads at a synthetic tree.
func WithRoot(root string) Option {
	return func(c *Collector) { c.root = root }
}

// WithRunner substitutes the external command runner.
func WithRunner(run Runner) Option {
	return func(c *Collector) { c.run = run }
}

// WithEnv substitutes the environment lookup.
func WithEnv(env func(string) string) Option {
	return func(c *Collector) { c.env = env }
}

// WithHome substitutes the home directory used for log scans.
func WithHome(home string) Option {
	return func(c *Collector) { c.home = home }
}

// WithClock substitutes the clock used for CPU sampling and GPU cache
// expiry.
func WithClock(clk clock.Clock) Option {
	return func(c *Collector) { c.clk = clk }
}

// WithGPUProber substitutes the GPU prober.
func WithGPUProber(prober *gpu.Prober) Option {
	return func(c *Collector) { c.prober = prober }
}

// New returns a Collector reading the live system.
func New(options ...Option) *Collector {
	c := &Collector{
		root: "/",
		run:  cLocaleRunner,
		env:  os.Getenv,
		clk:  clock.Real(),
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.home = home
	}
	for _, option := range options {
		option(c)
	}
	if c.prober == nil {
		c.prober = gpu.NewProberAt(c.root, gpu.Runner(c.run), lookPath)
	}
	c.cpu = &cpuSampler{root: c.root, clk: c.clk}
	c.gpuCache = probecache.New[gpuReading](c.clk)
	return c
}

// Collect gathers a full snapshot. Readers that fail leave their keys
// absent rather than aborting the pass; includeGPU gates the slower
// GPU probe for callers that never evaluate gaming rules.
func (c *Collector) Collect(ctx context.Context, includeGPU bool) *metric.Snapshot {
	values := make(map[string]metric.Value)

	if percent, ok := c.cpu.percent(ctx); ok {
		values[metric.KeyCPU] = metric.Number(percent)
	}
	if mem := readMemInfo(c.root); mem != nil {
		values[metric.KeyMem] = metric.Number(mem.usedPercent())
		values[metric.KeyTotalRAM] = metric.Number(mem.totalMB())
	}
	if percent, ok := diskUsedPercent(c.root); ok {
		values[metric.KeyDiskFull] = metric.Number(percent)
	}
	if fs, ok := rootFilesystem(c.root); ok {
		values[metric.KeyFilesystem] = metric.Text(fs)
	}
	if celsius, ok := readMaxTemperature(c.root); ok {
		values[metric.KeyTemperature] = metric.Number(celsius)
	}
	if rpm, ok := readMaxFanSpeed(c.root); ok {
		values[metric.KeyFanSpeed] = metric.Number(rpm)
	}
	if watts, ok := readBatteryDrain(c.root); ok {
		values[metric.KeyBatteryDrain] = metric.Number(watts)
	}
	if session, ok := readSessionType(c.env); ok {
		values[metric.KeySessionType] = metric.Text(session)
	}
	if count, ok := snapLoopMounts(c.root); ok {
		values[metric.KeySnapLoops] = metric.Number(float64(count))
	}
	if fill, ok := readZFSArcFill(c.root); ok {
		values[metric.KeyZFSArcFull] = metric.Number(fill)
	}

	if wifi, ok := readWifi(ctx, c.run); ok {
		values[metric.KeyWifiConnected] = metric.Bool(wifi.connected)
		if wifi.connected {
			values[metric.KeyWifiSignal] = metric.Number(wifi.signalDBM)
			values[metric.KeyWifiChannelCount] = metric.Number(float64(wifi.channelCount))
		}
	}
	if count, ok := countLUKSDevices(ctx, c.run); ok {
		values[metric.KeyLUKSDevices] = metric.Number(float64(count))
	}
	if count, ok := countDanglingDockerImages(ctx, c.run); ok {
		values[metric.KeyDockerDangling] = metric.Number(float64(count))
	}
	if count, ok := countUnusedFlatpakRuntimes(ctx, c.run); ok {
		values[metric.KeyFlatpakUnused] = metric.Number(float64(count))
	}

	processes := readProcesses(c.root)
	values[metric.KeyProcessCount] = metric.Number(float64(len(processes)))

	if includeGPU {
		c.collectGPU(ctx, values, processes)
	}

	return metric.NewSnapshot(values, processes)
}

// collectGPU fills the gpu_* and gaming keys. The probe itself runs
// through the cache so back-to-back passes share one reading.
func (c *Collector) collectGPU(ctx context.Context, values map[string]metric.Value, processes []metric.ProcessSample) {
	reading, err := c.gpuCache.GetOrFetch("gpu", gpuCacheTTL, func() (gpuReading, error) {
		info, found := c.prober.Probe(ctx)
		return gpuReading{info: info, found: found}, nil
	})
	if err == nil && reading.found {
		values[metric.KeyGPUVendor] = metric.Text(reading.info.Vendor)
		if reading.info.TempCelsius != nil {
			values[metric.KeyGPUTemp] = metric.Number(*reading.info.TempCelsius)
		}
		if reading.info.UtilPercent != nil {
			values[metric.KeyGPUUtil] = metric.Number(*reading.info.UtilPercent)
		}
		if reading.info.MemUtilPercent != nil {
			values[metric.KeyGPUMemUtil] = metric.Number(*reading.info.MemUtilPercent)
		}
	}

	values[metric.KeySteamRunning] = metric.Bool(processRunning(processes, "steam"))
	values[metric.KeyGamescopeRunning] = metric.Bool(processRunning(processes, "gamescope"))
	values[metric.KeyPrimeOffload] = metric.Text(primeOffloadState(c.env))
	values[metric.KeyVulkanMissing] = metric.Bool(vulkanLoaderMissing(c.root))
	if c.home != "" {
		if count, ok := countProtonFailures(c.home); ok {
			values[metric.KeyProtonFailures] = metric.Bool(count > 0)
		}
	}
}
