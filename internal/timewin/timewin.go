// Package timewin provides minute-of-day spans and clock parsing for
// schedule arithmetic. All spans are half-open: [Start, End).
package timewin

import (
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

// Span is a half-open interval of minutes from midnight.
type Span struct {
	Start int
	End   int
}

func (s Span) Valid() bool {
	return s.Start >= 0 && s.End <= MinutesPerDay && s.Start < s.End
}

// Overlaps reports whether two half-open spans intersect:
// [a0,a1) overlaps [b0,b1) iff a0 < b1 && b0 < a1.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// ParseClock converts "HH:MM" (24h) to minutes from midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate parses a business-local calendar date "YYYY-MM-DD".
func ParseDate(v string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", v, err)
	}
	return d, nil
}

// Weekday resolves the day-of-week (0=Sunday..6=Saturday) of a local date.
func Weekday(date string) (int, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}
