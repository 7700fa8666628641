package distribution

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// nightAdjacentSlots returns the open NA/NM/NC slots, per post type, critical bucket
// (evening availability under the threshold, scarcest first) before the standard one
// (date order).
func (e *Engine) nightAdjacentSlots() []*model.TimeSlot {
	var out []*model.TimeSlot
	for _, pt := range model.NightAdjacentPosts {
		var critical, standard []*model.TimeSlot
		for _, day := range e.workingDays() {
			ratio := e.matrix.AvailabilityRatio(day.Date, model.PeriodEvening)
			for _, s := range day.OpenSlots(pt) {
				if ratio < e.cfg.NightAdjacentCriticalAvailability {
					critical = append(critical, s)
				} else {
					standard = append(standard, s)
				}
			}
		}
		slices.SortStableFunc(critical, func(a, b *model.TimeSlot) int {
			return cmp.Compare(
				e.matrix.AvailabilityRatio(a.Date(), model.PeriodEvening),
				e.matrix.AvailabilityRatio(b.Date(), model.PeriodEvening),
			)
		})
		out = append(out, critical...)
		out = append(out, standard...)
	}
	return out
}

// distributeNightAdjacent fills NA, NM and NC slots: auxiliaries from their flat quotas first,
// then doctors on the evening before their long nights, then doctors' minimums, then
// leftovers by score.
func (e *Engine) distributeNightAdjacent(rc *RunContext) {
	slots := e.nightAdjacentSlots()
	if len(slots) == 0 {
		return
	}

	// Auxiliaries first
	for _, s := range slots {
		if !s.IsOpen() {
			continue
		}
		candidates := slices.Clone(e.auxiliaries)
		shuffle(rc, candidates)
		slices.SortStableFunc(candidates, func(a, b *model.Person) int {
			return cmp.Compare(e.tracker.PostDeficit(b, s.PostType), e.tracker.PostDeficit(a, s.PostType))
		})
		for _, a := range candidates {
			if e.canTake(rc, a, s, strictMode) {
				e.commit(rc, a, s, false)
				break
			}
		}
	}

	e.nightBeforeLongNight(rc)
	e.nightAdjacentMinimums(rc, slots)

	// Leftovers by score
	for _, s := range slots {
		if !s.IsOpen() {
			continue
		}
		var best *model.Person
		bestScore := 0.0
		for _, d := range e.doctors {
			if !e.canTake(rc, d, s, strictMode) {
				continue
			}
			score := e.nightAdjacentScore(d, s.PostType) * rc.jitter(e.cfg.Jitter)
			if best == nil || score > bestScore {
				best, bestScore = d, score
			}
		}
		if best != nil {
			e.commit(rc, best, s, false)
		}
	}
}

// nightBeforeLongNight places a night-adjacent post on the evening before each long night a
// doctor already holds, within the post maximum and the NMC group maximum.
func (e *Engine) nightBeforeLongNight(rc *RunContext) {
	for _, d := range e.doctors {
		for _, nl := range e.planning.AssignedSlots(d.Name) {
			if nl.PostType != model.PostNL {
				continue
			}
			eve, ok := e.planning.Day(nl.Date().AddDate(0, 0, -1))
			if !ok || !eve.IsWorkingWeekday() {
				continue
			}
			if !e.tracker.CanAssignGroup(d, model.GroupNMC, 1) {
				break
			}
			placed := false
			for _, pt := range model.NightAdjacentPosts {
				for _, s := range eve.OpenSlots(pt) {
					if e.canTake(rc, d, s, strictMode) {
						placed = e.commit(rc, d, s, false)
						break
					}
				}
				if placed {
					break
				}
			}
		}
	}
}

// nightAdjacentGap is how far a doctor is from the NA/NM/NC post minimums and the NMC group minimum
func (e *Engine) nightAdjacentGap(d *model.Person) int {
	posts := 0
	for _, pt := range model.NightAdjacentPosts {
		posts += e.tracker.PostDeficit(d, pt)
	}
	return max(posts, e.tracker.GroupDeficits(d)[model.GroupNMC])
}

// nightAdjacentMinimums serves doctors by largest unmet gap, each taking slots until the gap closes
func (e *Engine) nightAdjacentMinimums(rc *RunContext, slots []*model.TimeSlot) {
	var needy []*model.Person
	for _, d := range e.doctors {
		if e.nightAdjacentGap(d) > 0 {
			needy = append(needy, d)
		}
	}
	slices.SortStableFunc(needy, func(a, b *model.Person) int {
		return cmp.Compare(e.nightAdjacentGap(b), e.nightAdjacentGap(a))
	})

	for _, d := range needy {
		groupShort := e.tracker.GroupDeficits(d)[model.GroupNMC] > 0
		for _, s := range slots {
			if e.nightAdjacentGap(d) == 0 {
				break
			}
			if !s.IsOpen() {
				continue
			}
			if e.tracker.PostDeficit(d, s.PostType) == 0 && !groupShort {
				continue
			}
			if e.canTake(rc, d, s, strictMode) {
				e.commit(rc, d, s, false)
				groupShort = e.tracker.GroupDeficits(d)[model.GroupNMC] > 0
			}
		}
		if gap := e.nightAdjacentGap(d); gap > 0 {
			rc.Logger.Debug("Doctor still under night-adjacent minimum",
				zap.String("person", d.Name),
				zap.Int("gap", gap))
		}
	}
}

// nightAdjacentScore ranks a doctor for a leftover slot: room left in the NMC group, how little
// of this post type they hold relative to the other night-adjacent posts, and overall workload.
func (e *Engine) nightAdjacentScore(d *model.Person, pt model.PostType) float64 {
	w := e.cfg.NightAdjacentWeights
	c := e.tracker.Counters(d.Name)

	groupDistance := 0.5
	if iv, ok := e.tracker.GroupInterval(d, model.GroupNMC); ok && iv.Max > 0 {
		groupDistance = float64(iv.Max-c.Group(model.GroupNMC)) / float64(iv.Max)
	}

	total := 0
	for _, other := range model.NightAdjacentPosts {
		total += c.Post(other)
	}
	crossType := 1.0
	if total > 0 {
		crossType = 1 - float64(c.Post(pt))/float64(total)
	}

	workload := 1 - min(e.tracker.WorkloadRatio(d), 1)

	return w.GroupDistance*groupDistance + w.CrossType*crossType + w.Workload*workload
}
