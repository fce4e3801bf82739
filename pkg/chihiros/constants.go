// SPDX-License-Identifier: Apache-2.0

// Package chihiros implements the Chihiros binary command protocol.
//
// Chihiros LED fixtures and dosing pumps speak a vendor-specific frame
// protocol over the Nordic UART GATT service. This package provides frame
// encoding, the message-id sequence, the dose bucket codec, command
// constructors, and decoding of the notification payloads the devices send
// back.
package chihiros

// Nordic UART GATT UUIDs. Commands are written to the RX characteristic,
// device responses arrive as notifications on the TX characteristic.
const (
	UARTServiceUUID    = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	UARTWriteCharUUID  = "6e400002-b5a3-f393-e0a9-e50e24dcca9e" // device RX
	UARTNotifyCharUUID = "6e400003-b5a3-f393-e0a9-e50e24dcca9e" // device TX
)

// Sentinel is the reserved byte value the protocol forbids in message ids,
// parameters, and checksums. Parameter bytes equal to Sentinel are replaced
// with SentinelReplacement; colliding checksums are perturbed away by
// bumping the message id.
const (
	Sentinel            = 0x5A
	SentinelReplacement = 0x59
)

// Command ids (frame byte 0).
const (
	CmdLED    = 0x5A // LED commands
	CmdAuto   = 0xA5 // LED automation and dosing commands
	CmdNotify = 0x5B // device -> host response frames (e.g. daily totals)
)

// Command modes (frame byte 5).
const (
	ModeOrderConfirm  = 4
	ModeSwitch        = 5 // reset / auto / manual, selected by first parameter
	ModeManualSetting = 7
	ModeSetTime       = 9
	ModeAddAuto       = 25

	ModeDoserTimer      = 21
	ModeDoserDose       = 27
	ModeDoserAutoSwitch = 32

	ModeTotalsProbe = 0x1E // some firmwares answer this probe
	ModeDailyTotals = 0x22 // others answer (and reply with) this one
)

// Selector values for ModeSwitch commands.
const (
	switchReset  = 5
	switchManual = 11
	switchAuto   = 18
)

// Doser timer types for ModeDoserTimer.
const (
	DoserTimerSingle = 0 // single doses
	DoserTimer24h    = 1 // 24-hour schedule mode
)

// Argument limits enforced by the command constructors.
const (
	MaxBrightness    = 100
	MaxRampUpMinutes = 150
	MaxDoserChannel  = 3

	MinDoseMilliliters = 0.2
	MaxDoseMilliliters = 999.9

	// MaxScheduledDoseTenths caps a single schedule entry at 25.0 mL;
	// larger daily totals are split into staggered entries.
	MaxScheduledDoseTenths = 250
)

// Frame shape: [cmd, 0x01, len(params)+5, msg_hi, msg_lo, mode, params..., checksum].
const (
	frameConstByte = 0x01
	frameOverhead  = 7 // header (6 bytes) + checksum

	// MaxFrameParams keeps the declared length (len(params)+5) within a byte.
	MaxFrameParams = 250

	// checksumAttempts bounds the message-id bump loop when the checksum
	// collides with Sentinel. The collision chance is tiny but non-zero;
	// after the last attempt the colliding frame is returned as-is.
	checksumAttempts = 8
)
