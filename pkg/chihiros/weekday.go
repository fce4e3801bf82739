// SPDX-License-Identifier: Apache-2.0

package chihiros

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is the 7-bit automation weekday mask: bit 6 = Monday down to
// bit 0 = Sunday. Everyday (127) selects all days.
type Weekdays uint8

const (
	Monday    Weekdays = 1 << 6
	Tuesday   Weekdays = 1 << 5
	Wednesday Weekdays = 1 << 4
	Thursday  Weekdays = 1 << 3
	Friday    Weekdays = 1 << 2
	Saturday  Weekdays = 1 << 1
	Sunday    Weekdays = 1 << 0

	Everyday Weekdays = 127
)

var weekdayNames = map[string]Weekdays{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
	"everyday":  Everyday,
}

// ParseWeekdays builds a mask from day names ("monday" .. "sunday",
// "everyday"), case-insensitive. An empty list selects every day.
func ParseWeekdays(names []string) (Weekdays, error) {
	if len(names) == 0 {
		return Everyday, nil
	}
	var mask Weekdays
	for _, name := range names {
		d, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", name)
		}
		mask |= d
	}
	return mask, nil
}

// WeekdayOf returns the mask bit for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekdays {
	if d == time.Sunday {
		return Sunday
	}
	// Monday..Saturday map onto bits 6..1.
	return Weekdays(1 << (7 - uint(d)))
}

func (w Weekdays) String() string {
	if w == Everyday {
		return "everyday"
	}
	order := []struct {
		name string
		bit  Weekdays
	}{
		{"monday", Monday}, {"tuesday", Tuesday}, {"wednesday", Wednesday},
		{"thursday", Thursday}, {"friday", Friday}, {"saturday", Saturday},
		{"sunday", Sunday},
	}
	var parts []string
	for _, d := range order {
		if w&d.bit != 0 {
			parts = append(parts, d.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
