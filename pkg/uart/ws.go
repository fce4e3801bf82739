// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// Gateway envelope operations.
const (
	wsOpDial   = "dial"
	wsOpWrite  = "write"
	wsOpNotify = "notify"
	wsOpError  = "error"
)

// wsEnvelope is the CBOR message exchanged with a remote gateway. The
// gateway owns the Bluetooth radio; the client asks it to dial an address
// and then relays raw frames both ways.
type wsEnvelope struct {
	Op      string `cbor:"op"`
	Address string `cbor:"address,omitempty"`
	Payload []byte `cbor:"payload,omitempty"`
	Error   string `cbor:"error,omitempty"`
}

// WSTransport dials devices through a remote gateway over WebSocket with
// HTTP Basic auth, for hosts without a usable Bluetooth adapter.
type WSTransport struct {
	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool

	HandshakeTimeout time.Duration
}

// Dial connects to the gateway and asks it to reach the device.
func (t *WSTransport) Dial(ctx context.Context, address string) (Link, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	handshakeTimeout := t.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: t.SkipTLSVerify}
	}

	headers := http.Header{}
	if t.Username != "" && t.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(t.Username + ":" + t.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, t.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	link := &wsLink{conn: conn, address: address}
	if err := link.dial(address); err != nil {
		conn.Close()
		return nil, err
	}
	return link, nil
}

type wsLink struct {
	conn    *websocket.Conn
	address string

	writeMu sync.Mutex
	readMu  sync.Mutex
	reading bool
}

func (l *wsLink) send(env wsEnvelope) error {
	data, err := cbor.Marshal(env)
	if err != nil {
		return fmt.Errorf("envelope encode failed: %w", err)
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (l *wsLink) recv() (wsEnvelope, error) {
	for {
		messageType, data, err := l.conn.ReadMessage()
		if err != nil {
			return wsEnvelope{}, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		var env wsEnvelope
		if err := cbor.Unmarshal(data, &env); err != nil {
			return wsEnvelope{}, fmt.Errorf("envelope decode failed: %w", err)
		}
		return env, nil
	}
}

// dial asks the gateway to connect to the device and waits for the ack.
func (l *wsLink) dial(address string) error {
	if err := l.send(wsEnvelope{Op: wsOpDial, Address: address}); err != nil {
		return err
	}
	env, err := l.recv()
	if err != nil {
		return err
	}
	switch env.Op {
	case wsOpDial:
		return nil
	case wsOpError:
		return fmt.Errorf("%w: gateway: %s", ErrDeviceUnreachable, env.Error)
	default:
		return fmt.Errorf("unexpected gateway response: %q", env.Op)
	}
}

func (l *wsLink) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.send(wsEnvelope{Op: wsOpWrite, Address: l.address, Payload: frame})
}

func (l *wsLink) Subscribe(fn func(payload []byte)) error {
	l.readMu.Lock()
	defer l.readMu.Unlock()
	if l.reading {
		return fmt.Errorf("websocket link already has a subscriber")
	}
	l.reading = true

	go func() {
		for {
			env, err := l.recv()
			if err != nil {
				return
			}
			if env.Op == wsOpNotify {
				fn(env.Payload)
			}
		}
	}()
	return nil
}

func (l *wsLink) Close() error {
	return l.conn.Close()
}
