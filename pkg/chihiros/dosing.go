// SPDX-License-Identifier: Apache-2.0

package chihiros

// Dosing pump command constructors. The 4-channel doser shares the frame
// codec with the LED fixtures but uses its own modes under CmdAuto, and
// encodes amounts with the 25.6 mL bucket scheme (see dose.go).

import (
	"fmt"
	"time"
)

func checkDoserChannel(channel int) error {
	if channel < 0 || channel > MaxDoserChannel {
		return fmt.Errorf("doser channel %d out of range 0..%d", channel, MaxDoserChannel)
	}
	return nil
}

// NewManualDoseCommand doses the given amount once, immediately, on one
// channel.
func NewManualDoseCommand(id MessageID, channel int, dose DoseAmount) (Frame, error) {
	if err := checkDoserChannel(channel); err != nil {
		return nil, err
	}
	return MustEncodeFrame(CmdAuto, ModeDoserDose, id, []byte{
		byte(channel), 0, 0, dose.Bucket, dose.Remainder,
	}), nil
}

// NewDoseScheduleEntryCommand adds a 24-hour schedule entry for one channel.
// The entry's fire time is set separately with NewDoserTimerCommand.
func NewDoseScheduleEntryCommand(id MessageID, channel int, days Weekdays, dose DoseAmount) (Frame, error) {
	if err := checkDoserChannel(channel); err != nil {
		return nil, err
	}
	return MustEncodeFrame(CmdAuto, ModeDoserDose, id, []byte{
		byte(channel), byte(days), 1, 0, dose.Bucket, dose.Remainder,
	}), nil
}

// NewDoserTimerCommand sets the timer type and fire time for one channel.
func NewDoserTimerCommand(id MessageID, channel, timerType int, at TimeOfDay) (Frame, error) {
	if err := checkDoserChannel(channel); err != nil {
		return nil, err
	}
	if timerType != DoserTimerSingle && timerType != DoserTimer24h {
		return nil, fmt.Errorf("invalid doser timer type %d", timerType)
	}
	return MustEncodeFrame(CmdAuto, ModeDoserTimer, id, []byte{
		byte(channel), byte(timerType), byte(at.Hour), byte(at.Minute), 0, 0,
	}), nil
}

// NewDoserAutoModeCommand enables or disables automatic dosing for one
// channel. catchUpMissed asks the pump to make up a dose it slept through.
func NewDoserAutoModeCommand(id MessageID, channel int, catchUpMissed, active bool) (Frame, error) {
	if err := checkDoserChannel(channel); err != nil {
		return nil, err
	}
	var catchUp, act byte
	if catchUpMissed {
		catchUp = 1
	}
	if active {
		act = 1
	}
	return MustEncodeFrame(CmdAuto, ModeDoserAutoSwitch, id, []byte{
		byte(channel), catchUp, act,
	}), nil
}

// NewTotalsProbeCommands builds the probe frames that coax a doser into
// pushing its daily-totals frame. Firmwares differ: some answer mode 0x1E,
// some 0x22, and some only respond to the 0x5B command id, so all four
// variants are sent (0x5B first).
func NewTotalsProbeCommands(next func() MessageID) []Frame {
	return []Frame{
		MustEncodeFrame(CmdNotify, ModeTotalsProbe, next(), nil),
		MustEncodeFrame(CmdNotify, ModeDailyTotals, next(), nil),
		MustEncodeFrame(CmdAuto, ModeTotalsProbe, next(), nil),
		MustEncodeFrame(CmdAuto, ModeDailyTotals, next(), nil),
	}
}

// NewDoserAutoSequence switches automatic dosing on one channel and
// synchronizes the clock.
func NewDoserAutoSequence(next func() MessageID, now time.Time, channel int, catchUpMissed, active bool) ([]Frame, error) {
	switchCmd, err := NewDoserAutoModeCommand(next(), channel, catchUpMissed, active)
	if err != nil {
		return nil, err
	}
	return []Frame{switchCmd, NewSetTimeCommand(next(), now)}, nil
}

// NewDoseScheduleSequence programs a daily dose at the given time. The
// frame order matches the captured app traffic: confirmation prelude, two
// clock syncs, per-channel auto-mode switch, timer-type frame, then the
// schedule entries. Totals above 25.0 mL are split into entries staggered
// one minute apart so they do not overwrite each other.
func NewDoseScheduleSequence(next func() MessageID, now time.Time, at TimeOfDay, channel int, days Weekdays, totalTenths int) ([]Frame, error) {
	if err := checkDoserChannel(channel); err != nil {
		return nil, err
	}
	if totalTenths < minDoseTenths || totalTenths > maxDoseTenths {
		return nil, fmt.Errorf("dose %.1f mL out of range %.1f..%.1f",
			float64(totalTenths)/10, MinDoseMilliliters, MaxDoseMilliliters)
	}

	autoMode, err := NewDoserAutoModeCommand(next(), channel, false, true)
	if err != nil {
		return nil, err
	}
	frames := []Frame{
		NewOrderConfirmationCommand(next(), CmdLED, ModeOrderConfirm, 1),
		NewSetTimeCommand(next(), now),
		NewSetTimeCommand(next(), now),
		NewOrderConfirmationCommand(next(), CmdAuto, ModeOrderConfirm, 4),
		NewOrderConfirmationCommand(next(), CmdAuto, ModeOrderConfirm, 5),
		autoMode,
	}

	timer, err := NewDoserTimerCommand(next(), channel, DoserTimer24h, at)
	if err != nil {
		return nil, err
	}
	frames = append(frames, timer)

	remaining := totalTenths
	offset := 0
	for remaining > 0 {
		tenths := remaining
		if tenths > MaxScheduledDoseTenths {
			tenths = MaxScheduledDoseTenths
		}
		fireAt := at.AddMinutes(offset)
		if offset > 0 {
			timer, err := NewDoserTimerCommand(next(), channel, DoserTimer24h, fireAt)
			if err != nil {
				return nil, err
			}
			frames = append(frames, timer)
		}
		entry, err := NewDoseScheduleEntryCommand(next(), channel, days, splitTenths(tenths))
		if err != nil {
			return nil, err
		}
		frames = append(frames, entry)
		remaining -= tenths
		offset++
	}
	return frames, nil
}
