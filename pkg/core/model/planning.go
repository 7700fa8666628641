package model

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrSlotAssigned is returned when assigning a slot that already has an assignee
var ErrSlotAssigned = errors.New("slot already assigned")

// TimeSlot is one occurrence of a post at a site
type TimeSlot struct {
	Start    time.Time
	End      time.Time
	Site     string
	PostType PostType

	// Assignee is the name of the person holding the slot, empty when open
	Assignee string

	// PreAttributed slots were fixed before distribution and are never reassigned
	PreAttributed bool

	// Carried slots were already held when the planning was loaded; cleared on unassign
	Carried bool
}

// Date returns the calendar day the slot starts on
func (s *TimeSlot) Date() time.Time {
	return DateOf(s.Start)
}

// Period returns the period the slot belongs to, derived from its start time
func (s *TimeSlot) Period() Period {
	return PeriodOfClock(Clock(s.Start.Hour(), s.Start.Minute()))
}

// IsOpen reports whether nobody holds the slot
func (s *TimeSlot) IsOpen() bool {
	return s.Assignee == ""
}

// Overlaps reports whether the two slots share any instant
func (s *TimeSlot) Overlaps(o *TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

func (s *TimeSlot) String() string {
	return fmt.Sprintf("%s %s@%s", s.Date().Format(DateLayout), s.PostType, s.Site)
}

// DayPlanning holds the slots of one calendar day
type DayPlanning struct {
	Date              time.Time
	Slots             []*TimeSlot
	IsWeekend         bool
	IsHolidayOrBridge bool
}

// IsWorkingWeekday reports whether the weekday engine handles this day
func (d *DayPlanning) IsWorkingWeekday() bool {
	return !d.IsWeekend && !d.IsHolidayOrBridge
}

// OpenSlots returns the open slots of the given post type
func (d *DayPlanning) OpenSlots(pt PostType) []*TimeSlot {
	var out []*TimeSlot
	for _, s := range d.Slots {
		if s.PostType == pt && s.IsOpen() {
			out = append(out, s)
		}
	}
	return out
}

// Planning is the full set of days and slots to distribute
type Planning struct {
	Start       time.Time
	End         time.Time
	Days        []*DayPlanning
	PreAnalysis *PreAnalysis

	index *assignmentIndex
}

// assignmentIndex answers (person, date) lookups without scanning every slot
type assignmentIndex struct {
	byPerson map[string]map[time.Time][]*TimeSlot
	days     map[time.Time]*DayPlanning
}

// NewPlanning creates a planning over the given days, ordered by date
func NewPlanning(start, end time.Time, days []*DayPlanning, pa *PreAnalysis) *Planning {
	slices.SortFunc(days, func(a, b *DayPlanning) int {
		return a.Date.Compare(b.Date)
	})
	p := &Planning{
		Start:       DateOf(start),
		End:         DateOf(end),
		Days:        days,
		PreAnalysis: pa,
	}
	p.Reindex()
	return p
}

// Reindex rebuilds the assignment index from the slots' current assignees
func (p *Planning) Reindex() {
	idx := &assignmentIndex{
		byPerson: make(map[string]map[time.Time][]*TimeSlot),
		days:     make(map[time.Time]*DayPlanning, len(p.Days)),
	}
	for _, day := range p.Days {
		day.Date = DateOf(day.Date)
		idx.days[day.Date] = day
		for _, s := range day.Slots {
			if s.Assignee != "" {
				idx.add(s.Assignee, s)
			}
		}
	}
	p.index = idx
}

func (p *Planning) ensureIndex() *assignmentIndex {
	if p.index == nil {
		p.Reindex()
	}
	return p.index
}

func (idx *assignmentIndex) add(name string, s *TimeSlot) {
	dates, ok := idx.byPerson[name]
	if !ok {
		dates = make(map[time.Time][]*TimeSlot)
		idx.byPerson[name] = dates
	}
	d := s.Date()
	dates[d] = append(dates[d], s)
}

func (idx *assignmentIndex) remove(name string, s *TimeSlot) {
	dates := idx.byPerson[name]
	if dates == nil {
		return
	}
	d := s.Date()
	dates[d] = slices.DeleteFunc(dates[d], func(o *TimeSlot) bool { return o == s })
	if len(dates[d]) == 0 {
		delete(dates, d)
	}
}

// Assign gives an open slot to a person.
// Counters are not touched, callers own quota bookkeeping.
func (p *Planning) Assign(s *TimeSlot, name string) error {
	if !s.IsOpen() {
		return fmt.Errorf("%w: %s held by %s", ErrSlotAssigned, s, s.Assignee)
	}
	s.Assignee = name
	p.ensureIndex().add(name, s)
	return nil
}

// Unassign reopens a slot
func (p *Planning) Unassign(s *TimeSlot) {
	if s.IsOpen() {
		return
	}
	p.ensureIndex().remove(s.Assignee, s)
	s.Assignee = ""
	s.Carried = false
}

// Day returns the day planning of a date
func (p *Planning) Day(date time.Time) (*DayPlanning, bool) {
	d, ok := p.ensureIndex().days[DateOf(date)]
	return d, ok
}

// SlotsOf returns the slots a person holds on a date
func (p *Planning) SlotsOf(name string, date time.Time) []*TimeSlot {
	return p.ensureIndex().byPerson[name][DateOf(date)]
}

// WorksOn reports whether a person holds any slot on a date
func (p *Planning) WorksOn(name string, date time.Time) bool {
	return len(p.SlotsOf(name, date)) > 0
}

// HasPeriod reports whether a person already holds a slot in the given period of a date
func (p *Planning) HasPeriod(name string, date time.Time, period Period) bool {
	for _, s := range p.SlotsOf(name, date) {
		if s.Period() == period {
			return true
		}
	}
	return false
}

// AssignedSlots returns every slot a person holds, in date order
func (p *Planning) AssignedSlots(name string) []*TimeSlot {
	var out []*TimeSlot
	for _, day := range p.Days {
		out = append(out, p.SlotsOf(name, day.Date)...)
	}
	return out
}

// OpenSlots returns every open slot in date order
func (p *Planning) OpenSlots() []*TimeSlot {
	var out []*TimeSlot
	for _, day := range p.Days {
		for _, s := range day.Slots {
			if s.IsOpen() {
				out = append(out, s)
			}
		}
	}
	return out
}

// SlotTemplate describes how many slots of a post a site needs per day
type SlotTemplate struct {
	PostType PostType
	Site     string
	Count    int
	DayTypes []DayType
}

// BuildPlanning lays out the days between start and end (inclusive) from a slot template
func BuildPlanning(start, end time.Time, catalog *Catalog, template []SlotTemplate, classifier DayClassifier, pa *PreAnalysis) (*Planning, error) {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("planning end %s is before start %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	if classifier == nil {
		classifier = WeekClassifier{}
	}

	var days []*DayPlanning
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		dt := classifier.DayType(date)
		weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
		day := &DayPlanning{
			Date:              date,
			IsWeekend:         weekend,
			IsHolidayOrBridge: (!weekend && dt == DayTypeSundayHoliday) || classifier.IsBridge(date),
		}

		for _, entry := range template {
			def, ok := catalog.Post(entry.PostType)
			if !ok {
				return nil, fmt.Errorf("slot template references unknown post %s", entry.PostType)
			}
			if len(entry.DayTypes) > 0 && !slices.Contains(entry.DayTypes, dt) {
				continue
			}
			if len(entry.DayTypes) == 0 && !def.RunsOn(dt) {
				continue
			}
			count := max(entry.Count, 1)
			for range count {
				s, e := def.Span(date)
				day.Slots = append(day.Slots, &TimeSlot{
					Start:    s,
					End:      e,
					Site:     entry.Site,
					PostType: def.Type,
				})
			}
		}
		days = append(days, day)
	}

	return NewPlanning(start, end, days, pa), nil
}
