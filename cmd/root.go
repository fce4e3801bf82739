// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket gateway flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Behavior flags
	verbose        bool
	commandTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "chihirosctl",
	Short: "Chihiros aquarium device controller",
	Long: `chihirosctl - A CLI tool for controlling Chihiros aquarium LED lights
and dosing pumps over Bluetooth Low Energy.

Devices are addressed by their Bluetooth MAC address (use list-devices to
find them). Brightness, automation schedules, dosing and daily totals are
all driven through the vendor's UART command protocol.

Connection modes:
  Bluetooth: default, uses the host adapter
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  Gateway:   --url ws://host/path [--username user]

For gateway authentication, the password is read from the CHIHIROS_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (serial mode)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket gateway flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Gateway WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "timeout", 30*time.Second, "Per-command timeout")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
