// SPDX-License-Identifier: Apache-2.0

package chihiros

import "fmt"

// EncodeFrame builds a complete command frame.
//
// Parameter bytes equal to Sentinel are replaced with SentinelReplacement
// before assembly. If the resulting checksum equals Sentinel, the message
// id is advanced and the frame rebuilt, up to checksumAttempts times; the
// final attempt is returned even if its checksum still collides.
func EncodeFrame(cmdID, mode byte, id MessageID, params []byte) (Frame, error) {
	if len(params) > MaxFrameParams {
		return nil, fmt.Errorf("too many parameters: %d (max %d)", len(params), MaxFrameParams)
	}

	ps := make([]byte, len(params))
	for i, p := range params {
		if p == Sentinel {
			p = SentinelReplacement
		}
		ps[i] = p
	}

	frame := make([]byte, 0, len(ps)+frameOverhead)
	for attempt := 0; ; attempt++ {
		frame = append(frame[:0], cmdID, frameConstByte, byte(len(ps)+5), id.High, id.Low, mode)
		frame = append(frame, ps...)
		sum := Checksum(frame)
		if sum != Sentinel || attempt == checksumAttempts-1 {
			return append(frame, sum), nil
		}
		id = id.Next()
	}
}

// MustEncodeFrame is like EncodeFrame but panics on error. Intended for the
// command constructors, whose parameter lists are validated and small.
func MustEncodeFrame(cmdID, mode byte, id MessageID, params []byte) Frame {
	f, err := EncodeFrame(cmdID, mode, id, params)
	if err != nil {
		panic(fmt.Sprintf("chihiros: encode error: %v", err))
	}
	return f
}
