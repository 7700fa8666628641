package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Calendar classifies dates into day types from a set of public holidays.
// Holidays are given as fixed dates and as yearly RRULEs (e.g. "FREQ=YEARLY;BYEASTER=1").
type Calendar struct {
	fixed map[time.Time]bool
	rules []*rrule.RRule

	mu     sync.Mutex
	byYear map[int]map[time.Time]bool
}

// Compile-time assertion that Calendar classifies days for the planning builder
var _ model.DayClassifier = (*Calendar)(nil)

// New creates a calendar from fixed holiday dates and holiday recurrence rules
func New(fixed []time.Time, rules []string) (*Calendar, error) {
	c := &Calendar{
		fixed:  make(map[time.Time]bool, len(fixed)),
		byYear: make(map[int]map[time.Time]bool),
	}
	for _, d := range fixed {
		c.fixed[model.DateOf(d)] = true
	}
	for i, s := range rules {
		rule, err := rrule.StrToRRule(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holiday rule %d: %w", i, err)
		}
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

// holidaysOf expands the recurrence rules for a year, caching the result
func (c *Calendar) holidaysOf(year int) map[time.Time]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if days, ok := c.byYear[year]; ok {
		return days
	}

	days := make(map[time.Time]bool)
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	for _, rule := range c.rules {
		// Anchor the rule on the year being expanded
		rule.DTStart(yearStart)
		for _, occurrence := range rule.Between(yearStart, yearEnd, true) {
			days[model.DateOf(occurrence)] = true
		}
	}
	c.byYear[year] = days
	return days
}

// IsHoliday reports whether the date is a public holiday
func (c *Calendar) IsHoliday(date time.Time) bool {
	d := model.DateOf(date)
	if c.fixed[d] {
		return true
	}
	return c.holidaysOf(d.Year())[d]
}

// DayType classifies a date. Holidays use the Sunday table whatever their weekday.
func (c *Calendar) DayType(date time.Time) model.DayType {
	if c.IsHoliday(date) {
		return model.DayTypeSundayHoliday
	}
	return model.WeekClassifier{}.DayType(date)
}

// IsBridge reports whether a working day is squeezed between a holiday and the weekend:
// a Monday before a Tuesday holiday or a Friday after a Thursday holiday.
func (c *Calendar) IsBridge(date time.Time) bool {
	d := model.DateOf(date)
	if c.IsHoliday(d) {
		return false
	}
	switch d.Weekday() {
	case time.Monday:
		return c.IsHoliday(d.AddDate(0, 0, 1))
	case time.Friday:
		return c.IsHoliday(d.AddDate(0, 0, -1))
	}
	return false
}

// HolidaysBetween returns the holidays in the inclusive range, in date order
func (c *Calendar) HolidaysBetween(start, end time.Time) []time.Time {
	var out []time.Time
	for d := model.DateOf(start); !d.After(model.DateOf(end)); d = d.AddDate(0, 0, 1) {
		if c.IsHoliday(d) {
			out = append(out, d)
		}
	}
	return out
}
