package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PostType is the short code of a duty post, e.g. "ML" or "NL"
type PostType string

// Group is a statistic group aggregating several post types for quota purposes
type Group string

// Post types the engine handles explicitly
const (
	PostNL PostType = "NL"
	PostNA PostType = "NA"
	PostNM PostType = "NM"
	PostNC PostType = "NC"
)

// NightAdjacentPosts are the evening night posts distributed by their own stage
var NightAdjacentPosts = []PostType{PostNA, PostNM, PostNC}

// Statistic groups referenced by the engine
const (
	GroupNMC Group = "NMC"
	GroupNL  Group = "NLS"
)

// Audience describes which kind of staff may hold a post
type Audience int

const (
	AudienceDoctors Audience = iota
	AudienceAuxiliaries
	AudienceBoth
)

func (a Audience) String() string {
	switch a {
	case AudienceAuxiliaries:
		return "auxiliaries"
	case AudienceBoth:
		return "both"
	default:
		return "doctors"
	}
}

// ParseAudience converts an audience name into an Audience
func ParseAudience(s string) (Audience, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "doctors":
		return AudienceDoctors, nil
	case "auxiliaries":
		return AudienceAuxiliaries, nil
	case "both":
		return AudienceBoth, nil
	}
	return 0, fmt.Errorf("unknown audience %q", s)
}

// Allows reports whether staff of the given kind may hold the post
func (a Audience) Allows(k Kind) bool {
	switch a {
	case AudienceBoth:
		return true
	case AudienceAuxiliaries:
		return k == KindAuxiliary
	default:
		return k == KindDoctor
	}
}

// PostDefinition describes when a post runs and who may hold it
type PostDefinition struct {
	Type     PostType
	Start    ClockTime
	End      ClockTime
	Audience Audience
	DayTypes []DayType

	// Night posts finish late enough to constrain the following morning
	Night bool
}

// Period returns the period the post belongs to, derived from its start time
func (d PostDefinition) Period() Period {
	return PeriodOfClock(d.Start)
}

// Span returns the start and end instants of the post on the given date.
// Posts ending at or before their start finish on the following day.
func (d PostDefinition) Span(date time.Time) (time.Time, time.Time) {
	start := d.Start.On(date)
	end := d.End.On(date)
	if d.End <= d.Start {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// RunsOn reports whether the post exists on days of the given type
func (d PostDefinition) RunsOn(dt DayType) bool {
	return len(d.DayTypes) == 0 || slices.Contains(d.DayTypes, dt)
}

// DayType classifies a calendar date for post and group lookups
type DayType int

const (
	DayTypeWeekday DayType = iota
	DayTypeSaturday
	DayTypeSundayHoliday
)

func (t DayType) String() string {
	switch t {
	case DayTypeSaturday:
		return "saturday"
	case DayTypeSundayHoliday:
		return "sunday_holiday"
	default:
		return "weekday"
	}
}

// ParseDayType converts a day type name into a DayType
func ParseDayType(s string) (DayType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekday", "semaine":
		return DayTypeWeekday, nil
	case "saturday", "samedi":
		return DayTypeSaturday, nil
	case "sunday_holiday", "sunday", "holiday", "dimanche_ferie":
		return DayTypeSundayHoliday, nil
	}
	return 0, fmt.Errorf("unknown day type %q", s)
}

// IsWeekend reports whether the day type uses the weekend group table
func (t DayType) IsWeekend() bool {
	return t != DayTypeWeekday
}

// DayClassifier decides the type of a date and whether it bridges a holiday and a weekend
type DayClassifier interface {
	DayType(date time.Time) DayType
	IsBridge(date time.Time) bool
}

// WeekClassifier classifies by weekday only, with no holidays
type WeekClassifier struct{}

func (WeekClassifier) DayType(date time.Time) DayType {
	switch date.Weekday() {
	case time.Saturday:
		return DayTypeSaturday
	case time.Sunday:
		return DayTypeSundayHoliday
	default:
		return DayTypeWeekday
	}
}

func (WeekClassifier) IsBridge(time.Time) bool { return false }
