// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/whydiag/why/lib/clock"
)

// cpuSampleGap is the settle time between the two /proc/stat readings
// of a cold sample. Long enough for the counters to move, short enough
// to stay inside the pass latency budget.
const cpuSampleGap = 120 * time.Millisecond

// cpuTimes is one cumulative reading of the aggregate line of
// /proc/stat:
//
//	cpu  user nice system idle iowait irq softirq steal guest guest_nice
//
// busy = user + nice + system + irq + softirq + steal, idle = idle +
// iowait. guest and guest_nice are already folded into user/nice by
// the kernel.
type cpuTimes struct {
	busy uint64
	idle uint64
}

// cpuSampler produces CPU utilization from deltas between consecutive
// /proc/stat readings. A cold sampler takes two readings a short gap
// apart; a warm one (watch mode ticking every second) reuses the
// previous tick's reading, so each tick costs a single file read.
type cpuSampler struct {
	root string
	clk  clock.Clock

	mu       sync.Mutex
	previous *cpuTimes
}

// percent returns the current CPU utilization, or false when
// /proc/stat is unreadable.
func (s *cpuSampler) percent(ctx context.Context) (float64, bool) {
	current := readCPUTimes(s.root)
	if current == nil {
		return 0, false
	}

	s.mu.Lock()
	previous := s.previous
	s.previous = current
	s.mu.Unlock()

	if previous == nil {
		select {
		case <-s.clk.After(cpuSampleGap):
		case <-ctx.Done():
			return 0, false
		}
		second := readCPUTimes(s.root)
		if second == nil {
			return 0, false
		}
		s.mu.Lock()
		s.previous = second
		s.mu.Unlock()
		previous, current = current, second
	}

	return cpuDeltaPercent(previous, current)
}

func cpuDeltaPercent(previous, current *cpuTimes) (float64, bool) {
	busyDelta := current.busy - previous.busy
	idleDelta := current.idle - previous.idle
	totalDelta := busyDelta + idleDelta
	if totalDelta == 0 {
		return 0, false
	}
	return float64(busyDelta) / float64(totalDelta) * 100, true
}

// readCPUTimes parses the first line of <root>/proc/stat. Returns nil
// on any failure.
func readCPUTimes(root string) *cpuTimes {
	file, err := os.Open(filepath.Join(root, "proc/stat"))
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return nil
	}

	values := make([]uint64, len(fields)-1)
	for i := 1; i < len(fields); i++ {
		parsed, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return nil
		}
		values[i-1] = parsed
	}

	// 0=user 1=nice 2=system 3=idle 4=iowait 5=irq 6=softirq 7=steal
	return &cpuTimes{
		busy: values[0] + values[1] + values[2] + values[5] + values[6] + values[7],
		idle: values[3] + values[4],
	}
}
