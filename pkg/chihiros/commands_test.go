package chihiros

import (
	"bytes"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input  string
		expect TimeOfDay
		bad    bool
	}{
		{input: "08:30", expect: TimeOfDay{8, 30}},
		{input: "0:0", expect: TimeOfDay{0, 0}},
		{input: "23:59", expect: TimeOfDay{23, 59}},
		{input: "24:00", bad: true},
		{input: "12:60", bad: true},
		{input: "12", bad: true},
		{input: "ab:cd", bad: true},
		{input: "-1:30", bad: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if tt.bad {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.expect {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.input, got, tt.expect)
		}
	}
}

func TestTimeOfDay_AddMinutes(t *testing.T) {
	tests := []struct {
		start  TimeOfDay
		delta  int
		expect TimeOfDay
	}{
		{TimeOfDay{8, 30}, 1, TimeOfDay{8, 31}},
		{TimeOfDay{8, 59}, 1, TimeOfDay{9, 0}},
		{TimeOfDay{23, 59}, 1, TimeOfDay{0, 0}},
		{TimeOfDay{23, 59}, 61, TimeOfDay{1, 0}},
		{TimeOfDay{0, 0}, -1, TimeOfDay{23, 59}},
	}
	for _, tt := range tests {
		if got := tt.start.AddMinutes(tt.delta); got != tt.expect {
			t.Errorf("%v.AddMinutes(%d) = %v, want %v", tt.start, tt.delta, got, tt.expect)
		}
	}
}

func TestNewSetTimeCommand(t *testing.T) {
	// 2026-08-21 is a Friday.
	now := time.Date(2026, time.August, 21, 14, 30, 45, 0, time.UTC)
	frame := NewSetTimeCommand(MessageID{0, 1}, now)

	if frame.CmdID() != CmdLED || frame.Mode() != ModeSetTime {
		t.Fatalf("unexpected command/mode: 0x%02X/%d", frame.CmdID(), frame.Mode())
	}
	want := []byte{26, 8, 5, 14, 30, 45}
	if !bytes.Equal(frame.Params(), want) {
		t.Errorf("params = %v, want %v", frame.Params(), want)
	}
}

func TestNewSetTimeCommand_SundayIsSeven(t *testing.T) {
	// 2026-08-23 is a Sunday.
	now := time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC)
	frame := NewSetTimeCommand(MessageID{0, 1}, now)
	if got := frame.Params()[2]; got != 7 {
		t.Errorf("weekday byte = %d, want 7", got)
	}
}

func TestNewManualSettingCommand(t *testing.T) {
	frame, err := NewManualSettingCommand(MessageID{0, 1}, 2, 75)
	if err != nil {
		t.Fatalf("NewManualSettingCommand failed: %v", err)
	}
	if !bytes.Equal(frame.Params(), []byte{2, 75}) {
		t.Errorf("params = %v, want [2 75]", frame.Params())
	}

	for _, b := range []int{-1, 101, 255} {
		if _, err := NewManualSettingCommand(MessageID{0, 1}, 0, b); err == nil {
			t.Errorf("brightness %d should be rejected", b)
		}
	}
}

func TestNewAddAutoSettingCommand(t *testing.T) {
	frame, err := NewAddAutoSettingCommand(MessageID{0, 1},
		TimeOfDay{8, 0}, TimeOfDay{20, 30}, [3]int{80, 60, 40}, 30, Everyday)
	if err != nil {
		t.Fatalf("NewAddAutoSettingCommand failed: %v", err)
	}
	want := []byte{8, 0, 20, 30, 30, 127, 80, 60, 40, 255, 255, 255, 255, 255}
	if !bytes.Equal(frame.Params(), want) {
		t.Errorf("params = %v, want %v", frame.Params(), want)
	}
	if frame.CmdID() != CmdAuto || frame.Mode() != ModeAddAuto {
		t.Errorf("unexpected command/mode: 0x%02X/%d", frame.CmdID(), frame.Mode())
	}
}

func TestNewAddAutoSettingCommand_Rejects(t *testing.T) {
	sunrise, sunset := TimeOfDay{8, 0}, TimeOfDay{20, 0}
	if _, err := NewAddAutoSettingCommand(MessageID{0, 1}, sunrise, sunset, [3]int{120, 0, 0}, 0, Everyday); err == nil {
		t.Error("brightness 120 should be rejected")
	}
	if _, err := NewAddAutoSettingCommand(MessageID{0, 1}, sunrise, sunset, [3]int{50, 0, 0}, 151, Everyday); err == nil {
		t.Error("ramp-up 151 should be rejected")
	}
	// 255 passes through as the deletion marker.
	if _, err := NewAddAutoSettingCommand(MessageID{0, 1}, sunrise, sunset, [3]int{255, 255, 255}, 0, Everyday); err != nil {
		t.Errorf("brightness 255 marker should be accepted: %v", err)
	}
}

func TestNewDeleteAutoSettingCommand(t *testing.T) {
	frame, err := NewDeleteAutoSettingCommand(MessageID{0, 1}, TimeOfDay{8, 0}, TimeOfDay{20, 0}, 0, Everyday)
	if err != nil {
		t.Fatalf("NewDeleteAutoSettingCommand failed: %v", err)
	}
	params := frame.Params()
	if params[6] != 255 || params[7] != 255 || params[8] != 255 {
		t.Errorf("deletion should carry all-255 brightness, got %v", params[6:9])
	}
}

func TestModeSwitchCommands(t *testing.T) {
	tests := []struct {
		name     string
		frame    Frame
		selector byte
	}{
		{"reset", NewResetAutoSettingsCommand(MessageID{0, 1}), 5},
		{"manual", NewSwitchToManualModeCommand(MessageID{0, 1}), 11},
		{"auto", NewSwitchToAutoModeCommand(MessageID{0, 1}), 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.frame.CmdID() != CmdLED || tt.frame.Mode() != ModeSwitch {
				t.Fatalf("unexpected command/mode: 0x%02X/%d", tt.frame.CmdID(), tt.frame.Mode())
			}
			want := []byte{tt.selector, 255, 255}
			if !bytes.Equal(tt.frame.Params(), want) {
				t.Errorf("params = %v, want %v", tt.frame.Params(), want)
			}
		})
	}
}

func TestNewRawCommand(t *testing.T) {
	frame, err := NewRawCommand(MessageID{0, 1}, 90, 7, []int{0, 100})
	if err != nil {
		t.Fatalf("NewRawCommand failed: %v", err)
	}
	if frame.CmdID() != 90 || frame.Mode() != 7 {
		t.Errorf("unexpected command/mode: %d/%d", frame.CmdID(), frame.Mode())
	}

	for _, tt := range []struct {
		cmdID, mode int
		params      []int
	}{
		{256, 7, nil},
		{-1, 7, nil},
		{90, 256, nil},
		{90, 7, []int{300}},
		{90, 7, []int{-5}},
	} {
		if _, err := NewRawCommand(MessageID{0, 1}, tt.cmdID, tt.mode, tt.params); err == nil {
			t.Errorf("NewRawCommand(%d, %d, %v) should fail", tt.cmdID, tt.mode, tt.params)
		}
	}
}

func TestNewAutoModeSequence(t *testing.T) {
	id := MessageID{0, 1}
	next := func() MessageID {
		id = id.Next()
		return id
	}
	now := time.Date(2026, time.August, 21, 12, 0, 0, 0, time.UTC)

	frames := NewAutoModeSequence(next, now)
	if len(frames) != 2 {
		t.Fatalf("sequence length = %d, want 2", len(frames))
	}
	if frames[0].Mode() != ModeSwitch {
		t.Error("mode switch must precede the clock sync")
	}
	if frames[1].Mode() != ModeSetTime {
		t.Error("second frame should be the clock sync")
	}
	if frames[0].MessageID() == frames[1].MessageID() {
		t.Error("each frame needs its own message id")
	}
}
