// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
)

// SerialTransport dials devices attached through a UART bridge (the BLE
// module's serial side, or a wired debug hookup). The address is the port
// name, e.g. /dev/ttyUSB0.
type SerialTransport struct {
	BaudRate int
}

// NewSerialTransport uses the given baud rate, defaulting to 115200.
func NewSerialTransport(baudRate int) *SerialTransport {
	if baudRate == 0 {
		baudRate = 115200
	}
	return &SerialTransport{BaudRate: baudRate}
}

// Dial opens the serial port.
func (t *SerialTransport) Dial(ctx context.Context, address string) (Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: t.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(address, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open serial port %s: %v", ErrDeviceUnreachable, address, err)
	}
	return &serialLink{port: port}, nil
}

type serialLink struct {
	port serial.Port

	mu      sync.Mutex
	reading bool
	closed  bool
}

func (l *serialLink) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := l.port.Write(frame); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// Subscribe starts the read loop. Bytes off the wire run through the stream
// decoder and complete frames go to the handler; decode errors only drop
// the partial frame, the loop keeps reading.
func (l *serialLink) Subscribe(fn func(payload []byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reading {
		return fmt.Errorf("serial link already has a subscriber")
	}
	l.reading = true

	go func() {
		decoder := chihiros.NewStreamDecoder()
		buf := make([]byte, 64)
		for {
			n, err := l.port.Read(buf)
			if err != nil {
				return
			}
			for _, b := range buf[:n] {
				frame, err := decoder.Feed(b)
				if err != nil {
					continue
				}
				if frame != nil {
					fn(frame)
				}
			}
		}
	}()
	return nil
}

func (l *serialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}
