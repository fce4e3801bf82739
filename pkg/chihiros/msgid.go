// SPDX-License-Identifier: Apache-2.0

package chihiros

import "fmt"

// MessageID is the 2-byte per-session sequence number embedded in every
// frame. Device firmware uses it for request tracking. Neither byte may
// ever equal Sentinel.
type MessageID struct {
	High uint8
	Low  uint8
}

// Next returns the message id following m.
//
// The low byte increments, skipping Sentinel; when it wraps, the high byte
// increments with the same skip rule; when the high byte also wraps, the
// sequence restarts at (0,1). The sequence visits every valid pair in a
// fixed order and never stalls.
func (m MessageID) Next() MessageID {
	hi, lo := m.High, m.Low
	lo++
	if lo == Sentinel {
		lo++
	}
	if lo == 0 {
		hi++
		if hi == Sentinel {
			hi++
		}
		if hi == 0 {
			return MessageID{0, 1}
		}
	}
	return MessageID{High: hi, Low: lo}
}

// Valid reports whether neither byte equals Sentinel.
func (m MessageID) Valid() bool {
	return m.High != Sentinel && m.Low != Sentinel
}

func (m MessageID) String() string {
	return fmt.Sprintf("(%d,%d)", m.High, m.Low)
}
