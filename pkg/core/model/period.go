package model

import (
	"fmt"
	"strings"
	"time"
)

// Period is one of the three parts of a day a person can be unavailable for
type Period int

const (
	PeriodMorning Period = iota
	PeriodAfternoon
	PeriodEvening
)

// Periods lists every period in chronological order
var Periods = []Period{PeriodMorning, PeriodAfternoon, PeriodEvening}

// Boundaries between periods, in minutes since midnight
const (
	afternoonStart = 13 * 60
	eveningStart   = 18 * 60
)

func (p Period) String() string {
	switch p {
	case PeriodMorning:
		return "morning"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodEvening:
		return "evening"
	default:
		return fmt.Sprintf("period(%d)", int(p))
	}
}

// ParsePeriod converts a period name into a Period
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning", "m":
		return PeriodMorning, nil
	case "afternoon", "a":
		return PeriodAfternoon, nil
	case "evening", "e", "s":
		return PeriodEvening, nil
	}
	return 0, fmt.Errorf("unknown period %q", s)
}

// PeriodOfClock returns the period a post starting at the given clock time belongs to
func PeriodOfClock(c ClockTime) Period {
	switch {
	case int(c) < afternoonStart:
		return PeriodMorning
	case int(c) < eveningStart:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// Priority of a desiderata. Primary desiderata are never overridden.
type Priority int

const (
	PriorityPrimary Priority = iota
	PrioritySecondary
)

func (p Priority) String() string {
	if p == PrioritySecondary {
		return "secondary"
	}
	return "primary"
}

// ParsePriority converts a priority name into a Priority
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary":
		return PriorityPrimary, nil
	case "secondary":
		return PrioritySecondary, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// ClockTime is a time of day in minutes since midnight
type ClockTime int

// Clock builds a ClockTime from hours and minutes
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM"
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of this clock time on the given date
func (c ClockTime) On(date time.Time) time.Time {
	d := DateOf(date)
	return d.Add(time.Duration(c) * time.Minute)
}

// DateLayout is the layout used for dates in inputs, storage and logs
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar day.
// All date-keyed maps in the module use values produced by DateOf.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}
