package rules

import (
	"slices"
	"time"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// held returns the slots the person holds on a date, excluding the candidate slot
func held(req Request, date time.Time) []*model.TimeSlot {
	slots := req.Planning.SlotsOf(req.Person.Name, date)
	return slices.DeleteFunc(slices.Clone(slots), func(s *model.TimeSlot) bool { return s == req.Slot })
}

func isNight(s *model.TimeSlot, nightStart model.ClockTime) bool {
	return model.Clock(s.Start.Hour(), s.Start.Minute()) >= nightStart
}

func isNightAdjacent(s *model.TimeSlot) bool {
	return slices.Contains(model.NightAdjacentPosts, s.PostType)
}

func holdsPost(slots []*model.TimeSlot, pt model.PostType) bool {
	return slices.ContainsFunc(slots, func(s *model.TimeSlot) bool { return s.PostType == pt })
}

// desiderataRule refuses periods the person asked not to work.
// Secondary desiderata are ignored when the request relaxes them.
type desiderataRule struct{}

func (desiderataRule) Name() string { return RuleDesiderata }

func (desiderataRule) Allows(req Request) bool {
	prio, blocked := req.Person.BlockedBy(req.Date, req.Slot.Period())
	if !blocked {
		return true
	}
	return prio == model.PrioritySecondary && !req.RespectSecondary
}

// nightLongRule keeps a long night alone on its day and frees the following day.
//
// Validity:
//   - An NL on D refuses any other post on D and any post on D+1
//   - A post on D is refused when the person holds an NL on D or on D-1
type nightLongRule struct{}

func (nightLongRule) Name() string { return RuleNightLong }

func (nightLongRule) Allows(req Request) bool {
	today := held(req, req.Date)
	if req.Slot.PostType == model.PostNL {
		if len(today) > 0 || len(held(req, req.Date.AddDate(0, 0, 1))) > 0 {
			return false
		}
	} else if holdsPost(today, model.PostNL) {
		return false
	}
	return !holdsPost(held(req, req.Date.AddDate(0, 0, -1)), model.PostNL)
}

// nightAdjacentRule enforces the rest after NA, NM and NC posts, in both directions
type nightAdjacentRule struct {
	minRest time.Duration
}

func (nightAdjacentRule) Name() string { return RuleNightAdjacent }

func (r nightAdjacentRule) Allows(req Request) bool {
	// Candidate is night-adjacent: the next posts must start after the rest
	if isNightAdjacent(req.Slot) {
		for _, d := range []time.Time{req.Date, req.Date.AddDate(0, 0, 1)} {
			for _, s := range held(req, d) {
				if s.Start.Before(req.Slot.Start) {
					continue
				}
				if s.Start.Sub(req.Slot.End) < r.minRest {
					return false
				}
			}
		}
	}

	// A night-adjacent post already held the day before
	for _, s := range held(req, req.Date.AddDate(0, 0, -1)) {
		if isNightAdjacent(s) && req.Slot.Start.Sub(s.End) < r.minRest {
			return false
		}
	}
	return true
}

// morningAfterNightRule refuses a morning post after any night post the evening before
type morningAfterNightRule struct {
	nightStart model.ClockTime
}

func (morningAfterNightRule) Name() string { return RuleMorningAfterNight }

func (r morningAfterNightRule) Allows(req Request) bool {
	if req.Slot.Period() == model.PeriodMorning {
		for _, s := range held(req, req.Date.AddDate(0, 0, -1)) {
			if isNight(s, r.nightStart) {
				return false
			}
		}
	}
	if isNight(req.Slot, r.nightStart) {
		for _, s := range held(req, req.Date.AddDate(0, 0, 1)) {
			if s.Period() == model.PeriodMorning {
				return false
			}
		}
	}
	return true
}

// consecutiveNightsRule caps runs of consecutive days with a night post
type consecutiveNightsRule struct {
	nightStart model.ClockTime
	max        int
}

func (consecutiveNightsRule) Name() string { return RuleConsecutiveNights }

func (r consecutiveNightsRule) Allows(req Request) bool {
	if !isNight(req.Slot, r.nightStart) {
		return true
	}
	hasNight := func(d time.Time) bool {
		return slices.ContainsFunc(held(req, d), func(s *model.TimeSlot) bool { return isNight(s, r.nightStart) })
	}
	if hasNight(req.Date) {
		return true
	}
	return runLength(req.Date, hasNight) <= r.max
}

// consecutiveWorkingDaysRule caps runs of consecutive working days
type consecutiveWorkingDaysRule struct {
	max int
}

func (consecutiveWorkingDaysRule) Name() string { return RuleConsecutiveWorkingDays }

func (r consecutiveWorkingDaysRule) Allows(req Request) bool {
	works := func(d time.Time) bool { return len(held(req, d)) > 0 }
	// Already working that day: the run does not grow
	if works(req.Date) {
		return true
	}
	return runLength(req.Date, works) <= r.max
}

// runLength counts date plus the consecutive matching days on each side of it
func runLength(date time.Time, match func(time.Time) bool) int {
	n := 1
	for d := date.AddDate(0, 0, -1); match(d); d = d.AddDate(0, 0, -1) {
		n++
	}
	for d := date.AddDate(0, 0, 1); match(d); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// maxPostsPerDayRule caps the posts held on one day and refuses overlapping or same-period posts
type maxPostsPerDayRule struct {
	max int
}

func (maxPostsPerDayRule) Name() string { return RuleMaxPostsPerDay }

func (r maxPostsPerDayRule) Allows(req Request) bool {
	today := held(req, req.Date)
	if len(today) >= r.max {
		return false
	}
	for _, s := range today {
		if s.Period() == req.Slot.Period() || s.Overlaps(req.Slot) {
			return false
		}
	}
	// Posts spilling over from the previous evening
	for _, s := range held(req, req.Date.AddDate(0, 0, -1)) {
		if s.Overlaps(req.Slot) {
			return false
		}
	}
	return true
}
