// SPDX-License-Identifier: Apache-2.0

// Package device maps advertised Bluetooth names to Chihiros product
// capabilities. Every product family advertises a fixed name prefix
// followed by a serial suffix, so a scan result is enough to pick the
// channel layout and supported command set.
package device

import "strings"

// Kind distinguishes the two product categories.
type Kind int

const (
	KindLight Kind = iota
	KindDoser

	// KindUnknown marks a device whose product family could not be
	// identified, so no command can be ruled out up front.
	KindUnknown
)

// Channel is one addressable color or pump channel.
type Channel struct {
	Name string
	ID   uint8
}

// Command identifies one host-side operation a device may support.
type Command int

const (
	CmdSetBrightness Command = iota
	CmdSetColorBrightness
	CmdTurnOn
	CmdTurnOff
	CmdAddSetting
	CmdRemoveSetting
	CmdResetSettings
	CmdEnableAutoMode
	CmdSetManualMode
	CmdDose
	CmdAddDosingSchedule
	CmdEnableAutoDosing
	CmdReadDailyTotals
)

// Capability describes one product family.
type Capability struct {
	ModelName string
	Prefixes  []string
	Kind      Kind
	Channels  []Channel
}

// Supports reports whether the product accepts the command. Lights take
// the LED command set, dosers the pump set; scheduling commands need at
// least one channel. Unknown devices accept everything and leave the
// firmware to reject what it cannot do.
func (c Capability) Supports(cmd Command) bool {
	if c.Kind == KindUnknown {
		return true
	}
	switch cmd {
	case CmdDose, CmdAddDosingSchedule, CmdEnableAutoDosing, CmdReadDailyTotals:
		return c.Kind == KindDoser
	case CmdSetBrightness, CmdTurnOn, CmdTurnOff:
		return c.Kind == KindLight && len(c.Channels) > 0
	case CmdSetColorBrightness:
		return c.Kind == KindLight && len(c.Channels) > 1
	case CmdAddSetting, CmdRemoveSetting, CmdResetSettings, CmdEnableAutoMode, CmdSetManualMode:
		return c.Kind == KindLight
	}
	return false
}

// Channel returns the channel with the given name, matched
// case-insensitively.
func (c Capability) Channel(name string) (Channel, bool) {
	for _, ch := range c.Channels {
		if strings.EqualFold(ch.Name, name) {
			return ch, true
		}
	}
	return Channel{}, false
}

func white(id uint8) Channel { return Channel{Name: "white", ID: id} }
func red(id uint8) Channel   { return Channel{Name: "red", ID: id} }
func green(id uint8) Channel { return Channel{Name: "green", ID: id} }
func blue(id uint8) Channel  { return Channel{Name: "blue", ID: id} }

// Known product families. Prefix matching picks the longest match, so
// DYNC2N resolves to the C II even though DYNC also appears in longer
// prefixes.
var capabilities = []Capability{
	{
		ModelName: "Tiny Terrarium Egg",
		Prefixes:  []string{"DYDD"},
		Channels:  []Channel{red(0), green(1)},
	},
	{
		ModelName: "Z Light TINY",
		Prefixes:  []string{"DYSSD"},
		Channels:  []Channel{white(0), {Name: "warm", ID: 1}},
	},
	{
		ModelName: "A II",
		Prefixes:  []string{"DYNA2N", "DYNA2"},
		Channels:  []Channel{white(0)},
	},
	{
		ModelName: "C II",
		Prefixes:  []string{"DYNC2N"},
		Channels:  []Channel{white(0)},
	},
	{
		ModelName: "C II RGB",
		Prefixes:  []string{"DYNCRGP", "DYNCRGB"},
		Channels:  []Channel{red(0), green(1), blue(2)},
	},
	{
		ModelName: "WRGB II",
		Prefixes:  []string{"DYNWRGB"},
		Channels:  []Channel{white(0), red(1), green(2), blue(3)},
	},
	{
		ModelName: "WRGB II Pro",
		Prefixes:  []string{"DYWPRO"},
		Channels:  []Channel{white(0), red(1), green(2), blue(3)},
	},
	{
		ModelName: "WRGB II Slim",
		Prefixes:  []string{"DYSILN", "DYSL30", "DYSL45", "DYSL60", "DYSL90", "DYSL12"},
		Channels:  []Channel{red(0), green(1), blue(2)},
	},
	{
		ModelName: "Universal WRGB",
		Prefixes:  []string{"DYU550", "DYU600", "DYU700", "DYU800", "DYU920", "DYU1000", "DYU1200", "DYU1500"},
		Channels:  []Channel{red(0), green(1), blue(2), white(3)},
	},
	{
		ModelName: "Commander 1",
		Prefixes:  []string{"DYCOM"},
		Channels:  []Channel{red(0), green(1), blue(2), white(3)},
	},
	{
		ModelName: "Commander 4",
		Prefixes:  []string{"DYLED"},
		Channels:  []Channel{white(0), red(0), green(1), blue(2)},
	},
	{
		ModelName: "Doser",
		Prefixes:  []string{"DYDOSED", "DYDOSE", "DOSER"},
		Kind:      KindDoser,
	},
}

// Fallback covers unrecognized advertised names. It exposes the widest
// LED channel layout so manual commands still work against unknown
// fixtures.
var Fallback = Capability{
	ModelName: "Fallback",
	Channels:  []Channel{white(0), red(0), green(1), blue(2)},
}

// Unknown is used when the carrier cannot see an advertised name at all
// (serial ports, gateways). It carries the fallback channel layout but
// gates no commands: a doser on a serial bridge must still be dosable.
var Unknown = Capability{
	ModelName: "Unknown device",
	Kind:      KindUnknown,
	Channels:  []Channel{white(0), red(0), green(1), blue(2)},
}

// Resolve picks the capability whose prefix matches the advertised name.
// The longest matching prefix wins; unknown names get Fallback.
func Resolve(advertisedName string) Capability {
	best := Fallback
	bestLen := 0
	for _, c := range capabilities {
		for _, p := range c.Prefixes {
			if len(p) > bestLen && strings.HasPrefix(advertisedName, p) {
				best = c
				bestLen = len(p)
			}
		}
	}
	return best
}

// Models lists every known product family, for the CLI's model listing.
func Models() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}
