// Package timegrid converts time-of-day ranges into discrete slot boundaries.
// All arithmetic is done in whole minutes since midnight; no timezone
// handling happens here or anywhere downstream.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStepMinutes is the standard slot width for clinic bookings.
const DefaultStepMinutes = 30

const minutesPerDay = 24 * 60

// Clock is a time of day expressed as minutes since midnight.
// Resolution is one minute; seconds are dropped at parse time so a stored
// value of "09:30:00" compares equal to a generated slot "09:30".
type Clock int

// Parse accepts "HH:MM" or "HH:MM:SS" and returns the minute-resolution
// clock value. Seconds, when present, are truncated.
func Parse(s string) (Clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in clock value %q", s)
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return 0, fmt.Errorf("invalid second in clock value %q", s)
		}
	}

	return Clock(h*60 + m), nil
}

// MustParse is Parse for compile-time-known literals.
func MustParse(s string) Clock {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the canonical "HH:MM" form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether c falls within a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

// Expand produces the slot-start markers t with start <= t < end at the
// given step. The grid begins exactly at start, not rounded to any boundary.
// A window with end <= start expands to nothing; malformed windows
// contribute no slots rather than failing.
func Expand(start, end Clock, stepMinutes int) []Clock {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if end <= start {
		return nil
	}

	var out []Clock
	for t := start; t < end; t += Clock(stepMinutes) {
		out = append(out, t)
	}
	return out
}
