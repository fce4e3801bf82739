// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

// buildTransport picks the carrier from the persistent flags: gateway if
// --url is set, serial if --port is set, the host Bluetooth adapter
// otherwise.
func buildTransport() (uart.Transport, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		t := &uart.WSTransport{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipTLSVerify: wsNoSSLVerify,
		}
		return t, fmt.Sprintf("Gateway: %s", wsURL), nil
	}

	if portName != "" {
		t := uart.NewSerialTransport(baudRate)
		return t, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return uart.NewBLETransport(), "Bluetooth", nil
}

// newManager builds the session manager for this invocation. The transport
// is returned as well so BLE-only features (scanning, name resolution) can
// be used when available.
func newManager() (*uart.Manager, uart.Transport, error) {
	transport, info, err := buildTransport()
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("transport", info).Debug("Transport selected")
	m := uart.NewManager(transport, uart.Config{}, logrus.NewEntry(logrus.StandardLogger()))
	return m, transport, nil
}

// lookupCapability resolves the device's advertised name to its product
// capability. Only the Bluetooth carrier can see advertisements; serial
// ports and gateways cannot identify the product family, so they get the
// ungated Unknown capability rather than a guess at one kind.
func lookupCapability(ctx context.Context, transport uart.Transport, address string) device.Capability {
	ble, ok := transport.(*uart.BLETransport)
	if !ok {
		return device.Unknown
	}
	name, err := ble.Resolve(ctx, address)
	if err != nil {
		logrus.WithError(err).Debug("Name resolution failed, using fallback capability")
		return device.Fallback
	}
	cap := device.Resolve(name)
	logrus.WithFields(logrus.Fields{
		"name":  name,
		"model": cap.ModelName,
	}).Debug("Device model resolved")
	return cap
}

// deviceAddress resolves the device argument. In serial mode the port is
// the device, so the argument is optional and defaults to the port name.
func deviceAddress(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if portName != "" {
		return portName, nil
	}
	return "", fmt.Errorf("device address required (use list-devices to find it)")
}

// commandContext returns the context for one CLI command.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("CHIHIROS_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}
