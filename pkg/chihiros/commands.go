// SPDX-License-Identifier: Apache-2.0

package chihiros

// Command constructors build ready-to-send frames. Each validates its
// arguments before any encoding, so a returned frame is always complete
// and transmittable. Multi-frame sequences take a message-id source (the
// session's NextMessageID) because each frame needs its own id, and the
// frame order is significant on real firmware.

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock HH:MM pair used by schedule commands.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// AddMinutes returns t shifted forward, wrapping past midnight.
func (t TimeOfDay) AddMinutes(delta int) TimeOfDay {
	total := (t.Hour*60 + t.Minute + delta) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// NewSetTimeCommand synchronizes the device clock. The day field carries
// the ISO weekday (Monday=1 .. Sunday=7) and the year is offset from 2000.
func NewSetTimeCommand(id MessageID, now time.Time) Frame {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return MustEncodeFrame(CmdLED, ModeSetTime, id, []byte{
		byte(now.Year() - 2000),
		byte(now.Month()),
		byte(weekday),
		byte(now.Hour()),
		byte(now.Minute()),
		byte(now.Second()),
	})
}

// NewManualSettingCommand sets the brightness of one channel.
// On non-RGB models channel 0 is white.
func NewManualSettingCommand(id MessageID, channel uint8, brightness int) (Frame, error) {
	if brightness < 0 || brightness > MaxBrightness {
		return nil, fmt.Errorf("brightness %d out of range 0..%d", brightness, MaxBrightness)
	}
	return MustEncodeFrame(CmdLED, ModeManualSetting, id, []byte{channel, byte(brightness)}), nil
}

// NewAddAutoSettingCommand adds a sunrise-sunset automation entry. The
// brightness triple is (red, green, blue); non-RGB models use
// (white, 255, 255).
func NewAddAutoSettingCommand(id MessageID, sunrise, sunset TimeOfDay, brightness [3]int, rampUpMinutes int, days Weekdays) (Frame, error) {
	for _, b := range brightness {
		if b != 255 && (b < 0 || b > MaxBrightness) {
			return nil, fmt.Errorf("brightness %d out of range 0..%d", b, MaxBrightness)
		}
	}
	if rampUpMinutes < 0 || rampUpMinutes > MaxRampUpMinutes {
		return nil, fmt.Errorf("ramp-up %d out of range 0..%d minutes", rampUpMinutes, MaxRampUpMinutes)
	}
	return MustEncodeFrame(CmdAuto, ModeAddAuto, id, []byte{
		byte(sunrise.Hour), byte(sunrise.Minute),
		byte(sunset.Hour), byte(sunset.Minute),
		byte(rampUpMinutes),
		byte(days),
		byte(brightness[0]), byte(brightness[1]), byte(brightness[2]),
		255, 255, 255, 255, 255,
	}), nil
}

// NewDeleteAutoSettingCommand removes a previously added automation entry.
// Deletion is an add with all-255 brightness, matching firmware behavior.
func NewDeleteAutoSettingCommand(id MessageID, sunrise, sunset TimeOfDay, rampUpMinutes int, days Weekdays) (Frame, error) {
	return NewAddAutoSettingCommand(id, sunrise, sunset, [3]int{255, 255, 255}, rampUpMinutes, days)
}

// NewResetAutoSettingsCommand removes all automation entries.
func NewResetAutoSettingsCommand(id MessageID) Frame {
	return MustEncodeFrame(CmdLED, ModeSwitch, id, []byte{switchReset, 255, 255})
}

// NewSwitchToAutoModeCommand switches the device to its automatic schedule.
func NewSwitchToAutoModeCommand(id MessageID) Frame {
	return MustEncodeFrame(CmdLED, ModeSwitch, id, []byte{switchAuto, 255, 255})
}

// NewSwitchToManualModeCommand switches the device to manual control.
func NewSwitchToManualModeCommand(id MessageID) Frame {
	return MustEncodeFrame(CmdLED, ModeSwitch, id, []byte{switchManual, 255, 255})
}

// NewOrderConfirmationCommand builds the single-parameter acknowledgement
// frames the firmware expects before some command sequences.
func NewOrderConfirmationCommand(id MessageID, cmdID, mode, value byte) Frame {
	return MustEncodeFrame(cmdID, mode, id, []byte{value})
}

// NewRawCommand builds an arbitrary frame from integer arguments, for the
// raw CLI path. Every value must fit in a byte.
func NewRawCommand(id MessageID, cmdID, mode int, params []int) (Frame, error) {
	if cmdID < 0 || cmdID > 255 {
		return nil, fmt.Errorf("command id %d out of range 0..255", cmdID)
	}
	if mode < 0 || mode > 255 {
		return nil, fmt.Errorf("mode %d out of range 0..255", mode)
	}
	ps := make([]byte, len(params))
	for i, p := range params {
		if p < 0 || p > 255 {
			return nil, fmt.Errorf("parameter %d out of range 0..255: %d", i, p)
		}
		ps[i] = byte(p)
	}
	return EncodeFrame(byte(cmdID), byte(mode), id, ps)
}

// NewAutoModeSequence switches to the automatic schedule and synchronizes
// the clock. The mode switch must precede the clock sync.
func NewAutoModeSequence(next func() MessageID, now time.Time) []Frame {
	return []Frame{
		NewSwitchToAutoModeCommand(next()),
		NewSetTimeCommand(next(), now),
	}
}
