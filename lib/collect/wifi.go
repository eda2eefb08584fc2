// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"strconv"
	"strings"
)

// wifiStatus summarizes the active wireless connection and its radio
// neighborhood as reported by nmcli. channelCount is the number of
// visible access points, the congestion signal the thresholds rank.
type wifiStatus struct {
	connected    bool
	signalDBM    float64
	channel      int
	channelCount int
}

// readWifi queries NetworkManager for the visible access point list.
// A missing nmcli or a wired-only machine reports false.
func readWifi(ctx context.Context, run Runner) (wifiStatus, bool) {
	output, err := run(ctx, "nmcli", "-t", "-f", "ACTIVE,CHAN,SIGNAL", "device", "wifi", "list")
	if err != nil {
		return wifiStatus{}, false
	}
	return parseWifiList(output), true
}

// parseWifiList parses nmcli terse output, one access point per line
// as ACTIVE:CHAN:SIGNAL. Signal is a 0..100 quality percentage;
// subtracting 100 gives the conventional dBm approximation.
func parseWifiList(output string) wifiStatus {
	var status wifiStatus
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(strings.TrimSpace(line), ":")
		if len(fields) < 3 {
			continue
		}
		channel, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		status.channelCount++

		if fields[0] != "yes" {
			continue
		}
		signal, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		status.connected = true
		status.signalDBM = float64(signal - 100)
		status.channel = channel
	}
	return status
}
