// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"testing"

	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

// Serial ports and gateways cannot see the advertised name, so capability
// lookup must not guess a product kind: a doser on a serial bridge still
// has to accept dosing commands, and a light still has to accept LED ones.
func TestLookupCapability_NonBLECarriersGateNothing(t *testing.T) {
	tests := []struct {
		name      string
		transport uart.Transport
	}{
		{name: "serial", transport: uart.NewSerialTransport(115200)},
		{name: "gateway", transport: &uart.WSTransport{URL: "ws://gateway.local/ble"}},
	}

	cmds := []struct {
		name string
		cmd  device.Command
	}{
		{"dose", device.CmdDose},
		{"add-dosing-schedule", device.CmdAddDosingSchedule},
		{"enable-auto-dosing", device.CmdEnableAutoDosing},
		{"read-daily-totals", device.CmdReadDailyTotals},
		{"set-brightness", device.CmdSetBrightness},
		{"enable-auto-mode", device.CmdEnableAutoMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cap := lookupCapability(context.Background(), tt.transport, "/dev/ttyUSB0")
			if cap.Kind != device.KindUnknown {
				t.Fatalf("capability kind = %d, want KindUnknown", cap.Kind)
			}
			for _, c := range cmds {
				if !cap.Supports(c.cmd) {
					t.Errorf("%s rejected on the %s carrier before any I/O", c.name, tt.name)
				}
			}
			if len(cap.Channels) == 0 {
				t.Error("unknown capability needs channels for brightness commands")
			}
		})
	}
}
