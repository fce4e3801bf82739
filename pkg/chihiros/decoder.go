// SPDX-License-Identifier: Apache-2.0

package chihiros

import "fmt"

// Decoder states
const (
	stateCmdID = iota
	stateConst
	stateLength
	stateBody
)

// StreamDecoder reassembles frames from a byte stream. Serial carriers
// deliver frames in arbitrary chunks, so the decoder accumulates bytes
// until a complete frame is buffered, then verifies the checksum. BLE
// notifications arrive whole and can skip the decoder entirely.
type StreamDecoder struct {
	state  int
	buffer []byte
	total  int // expected full frame size once the length byte is seen
}

// NewStreamDecoder creates a new frame decoder.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{buffer: make([]byte, 0, MaxFrameParams+frameOverhead)}
}

// Reset discards any partial frame.
func (d *StreamDecoder) Reset() {
	d.state = stateCmdID
	d.buffer = d.buffer[:0]
	d.total = 0
}

// Feed processes a single byte. It returns a completed frame, or nil while
// the frame is incomplete. On a framing or checksum error the decoder
// resets itself so the stream can resynchronize on the next frame.
func (d *StreamDecoder) Feed(b byte) (Frame, error) {
	switch d.state {
	case stateCmdID:
		d.buffer = append(d.buffer[:0], b)
		d.state = stateConst
		return nil, nil

	case stateConst:
		if b != frameConstByte {
			d.Reset()
			return nil, fmt.Errorf("bad frame marker 0x%02X (want 0x%02X)", b, frameConstByte)
		}
		d.buffer = append(d.buffer, b)
		d.state = stateLength
		return nil, nil

	case stateLength:
		if b < 5 {
			d.Reset()
			return nil, fmt.Errorf("invalid length byte %d (min 5)", b)
		}
		d.buffer = append(d.buffer, b)
		// Length counts message id, mode, params and checksum; the two
		// header bytes before it are not included.
		d.total = int(b) + 2
		d.state = stateBody
		return nil, nil

	case stateBody:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) < d.total {
			return nil, nil
		}
		frame := make(Frame, d.total)
		copy(frame, d.buffer)
		d.Reset()
		if sum := Checksum(frame[:len(frame)-1]); sum != frame.Checksum() {
			return nil, fmt.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", sum, frame.Checksum())
		}
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// ParseDailyTotals extracts the four per-channel daily totals from a doser
// notification payload. The second return is false when the payload is not
// a daily-totals frame. Accepts raw notification payloads of any length
// without panicking.
func ParseDailyTotals(payload []byte) ([MaxDoserChannel + 1]float64, bool) {
	var totals [MaxDoserChannel + 1]float64
	// cmd id, marker, length, message id, mode, 8 params, checksum.
	if len(payload) < 14 {
		return totals, false
	}
	if payload[0] != CmdNotify || payload[5] != ModeDailyTotals {
		return totals, false
	}
	params := Frame(payload).Params()
	if len(params) < 8 {
		return totals, false
	}
	for ch := 0; ch <= MaxDoserChannel; ch++ {
		d := DoseAmount{Bucket: params[ch*2], Remainder: params[ch*2+1]}
		totals[ch] = d.Milliliters()
	}
	return totals, true
}
