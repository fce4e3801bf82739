// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
)

// DefaultScanTimeout bounds the pre-connect scan for a device address.
const DefaultScanTimeout = 10 * time.Second

// BLETransport dials devices over Bluetooth Low Energy using the host
// adapter. Chihiros devices expose the Nordic UART service: commands go to
// the write characteristic, responses arrive on the notify characteristic.
type BLETransport struct {
	ScanTimeout time.Duration

	enableOnce sync.Once
	enableErr  error
	adapter    *bluetooth.Adapter
}

// NewBLETransport uses the default host adapter.
func NewBLETransport() *BLETransport {
	return &BLETransport{adapter: bluetooth.DefaultAdapter}
}

func (t *BLETransport) enable() error {
	t.enableOnce.Do(func() {
		t.enableErr = t.adapter.Enable()
	})
	if t.enableErr != nil {
		return fmt.Errorf("failed to enable Bluetooth: %w", t.enableErr)
	}
	return nil
}

// ScanResult is one advertisement seen during discovery.
type ScanResult struct {
	Address string
	Name    string
	RSSI    int16
}

// Scan reports every advertising device until ctx is done. Each address is
// reported once.
func (t *BLETransport) Scan(ctx context.Context, fn func(ScanResult)) error {
	if err := t.enable(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		t.adapter.StopScan()
	}()
	defer stopOnce.Do(func() { close(done) })

	return t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		if seen[addr] {
			return
		}
		seen[addr] = true
		fn(ScanResult{Address: addr, Name: result.LocalName(), RSSI: result.RSSI})
	})
}

// findDevice scans for the advertisement matching the address.
func (t *BLETransport) findDevice(ctx context.Context, address string) (bluetooth.ScanResult, error) {
	timeout := t.ScanTimeout
	if timeout == 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		result bluetooth.ScanResult
		found  bool
	)

	go func() {
		<-ctx.Done()
		t.adapter.StopScan()
	}()

	err := t.adapter.Scan(func(adapter *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !strings.EqualFold(r.Address.String(), address) {
			return
		}
		mu.Lock()
		result = r
		found = true
		mu.Unlock()
		adapter.StopScan()
	})
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("scan failed: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !found {
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %s not advertising", ErrDeviceUnreachable, address)
	}
	return result, nil
}

// Resolve scans for the device and returns its advertised name, for
// capability lookup before connecting.
func (t *BLETransport) Resolve(ctx context.Context, address string) (string, error) {
	if err := t.enable(); err != nil {
		return "", err
	}
	result, err := t.findDevice(ctx, address)
	if err != nil {
		return "", err
	}
	return result.LocalName(), nil
}

// Dial connects to the device and discovers the UART characteristics.
func (t *BLETransport) Dial(ctx context.Context, address string) (Link, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	result, err := t.findDevice(ctx, address)
	if err != nil {
		return nil, err
	}

	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	link, err := newBLELink(device)
	if err != nil {
		device.Disconnect()
		return nil, err
	}
	return link, nil
}

type bleLink struct {
	device     bluetooth.Device
	writeChar  bluetooth.DeviceCharacteristic
	notifyChar bluetooth.DeviceCharacteristic
}

func newBLELink(device bluetooth.Device) (*bleLink, error) {
	serviceUUID, err := bluetooth.ParseUUID(chihiros.UARTServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service UUID: %w", err)
	}
	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return nil, &CharacteristicMissingError{UUID: chihiros.UARTServiceUUID}
	}

	writeUUID, _ := bluetooth.ParseUUID(chihiros.UARTWriteCharUUID)
	notifyUUID, _ := bluetooth.ParseUUID(chihiros.UARTNotifyCharUUID)
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
	if err != nil {
		return nil, &CharacteristicMissingError{UUID: chihiros.UARTWriteCharUUID}
	}

	link := &bleLink{device: device}
	var haveWrite, haveNotify bool
	for _, c := range chars {
		switch c.UUID().String() {
		case chihiros.UARTWriteCharUUID:
			link.writeChar = c
			haveWrite = true
		case chihiros.UARTNotifyCharUUID:
			link.notifyChar = c
			haveNotify = true
		}
	}
	if !haveWrite {
		return nil, &CharacteristicMissingError{UUID: chihiros.UARTWriteCharUUID}
	}
	if !haveNotify {
		return nil, &CharacteristicMissingError{UUID: chihiros.UARTNotifyCharUUID}
	}
	return link, nil
}

func (l *bleLink) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := l.writeChar.WriteWithoutResponse(frame); err != nil {
		return fmt.Errorf("characteristic write failed: %w", err)
	}
	return nil
}

func (l *bleLink) Subscribe(fn func(payload []byte)) error {
	return l.notifyChar.EnableNotifications(func(buf []byte) {
		// The callback reuses its buffer; hand the subscriber a copy.
		payload := make([]byte, len(buf))
		copy(payload, buf)
		fn(payload)
	})
}

func (l *bleLink) Close() error {
	return l.device.Disconnect()
}
