// SPDX-License-Identifier: Apache-2.0

package chihiros

import "fmt"

// Frame is one complete wire-level command, header through checksum:
//
//	[cmd, 0x01, len(params)+5, msg_hi, msg_lo, mode, params..., checksum]
//
// Frames produced by EncodeFrame are always well formed; frames received
// from a device should be checked with ValidateFrame before the accessors
// are used.
type Frame []byte

// CmdID returns the command id (byte 0).
func (f Frame) CmdID() byte { return f[0] }

// DeclaredLength returns the length byte, defined as len(params)+5.
func (f Frame) DeclaredLength() byte { return f[2] }

// MessageID returns the embedded message id.
func (f Frame) MessageID() MessageID { return MessageID{High: f[3], Low: f[4]} }

// Mode returns the mode / sub-command byte.
func (f Frame) Mode() byte { return f[5] }

// Params returns the parameter bytes (may be empty).
func (f Frame) Params() []byte { return f[6 : len(f)-1] }

// Checksum returns the trailing checksum byte.
func (f Frame) Checksum() byte { return f[len(f)-1] }

func (f Frame) String() string {
	return fmt.Sprintf("% X", []byte(f))
}
