// SPDX-License-Identifier: GPL-2.0-or-later
//
// chihirosctl - Chihiros aquarium device control
//
// A CLI tool for controlling Chihiros LED fixtures and dosing pumps over
// Bluetooth Low Energy (Nordic UART service).

package main

import (
	"os"

	"github.com/chihiros-control/chihirosctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
