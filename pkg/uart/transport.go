// SPDX-License-Identifier: Apache-2.0

// Package uart manages connections to Chihiros devices. A Transport dials a
// device address over some carrier (BLE, serial, or a websocket gateway) and
// hands back a Link; a Session owns the link lifecycle, serializes command
// writes, retries transient failures, and disconnects idle links.
package uart

import "context"

// Link is one live connection to a device.
type Link interface {
	// Write sends one complete frame.
	Write(ctx context.Context, frame []byte) error
	// Subscribe registers the handler for device notification payloads.
	// Only one handler is active per link.
	Subscribe(fn func(payload []byte)) error
	Close() error
}

// Transport dials device addresses over one carrier.
type Transport interface {
	Dial(ctx context.Context, address string) (Link, error)
}
