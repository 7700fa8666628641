package distribution

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// residualSlots returns the open working-weekday slots, critical periods first
func (e *Engine) residualSlots() []*model.TimeSlot {
	var slots []*model.TimeSlot
	for _, day := range e.workingDays() {
		for _, s := range day.Slots {
			if s.IsOpen() {
				slots = append(slots, s)
			}
		}
	}
	e.orderCriticalFirst(slots)
	return slots
}

// distributeResidual fills what earlier stages left in four escalating passes
func (e *Engine) distributeResidual(rc *RunContext) {
	passes := []struct {
		name string
		fn   func(*RunContext, *model.TimeSlot) bool
	}{
		{"minimums", e.fillMinimum},
		{"equity", e.fillEquity},
		{"type-flex", e.fillTypeFlex},
		{"relaxed", e.fillRelaxed},
	}

	for _, pass := range passes {
		slots := e.residualSlots()
		if len(slots) == 0 {
			rc.Logger.Debug("No open slots left", zap.String("pass", pass.name))
			return
		}
		placed := 0
		for _, s := range slots {
			if s.IsOpen() && pass.fn(rc, s) {
				placed++
			}
		}
		rc.Logger.Debug("Residual pass complete",
			zap.String("pass", pass.name),
			zap.Int("placed", placed),
			zap.Int("open", len(slots)-placed))
	}
}

// deficitFor is how much the slot would help the person reach a minimum
func (e *Engine) deficitFor(p *model.Person, s *model.TimeSlot) int {
	d := e.tracker.PostDeficit(p, s.PostType)
	if g, ok := e.tracker.GroupOf(s.PostType, s.Date()); ok {
		d += e.tracker.GroupDeficits(p)[g]
	}
	return d
}

// fillMinimum gives the slot to whoever is furthest below a minimum it counts towards
func (e *Engine) fillMinimum(rc *RunContext, s *model.TimeSlot) bool {
	var candidates []*model.Person
	for _, p := range e.staff {
		if e.deficitFor(p, s) > 0 {
			candidates = append(candidates, p)
		}
	}
	shuffle(rc, candidates)
	slices.SortStableFunc(candidates, func(a, b *model.Person) int {
		return cmp.Compare(e.deficitFor(b, s), e.deficitFor(a, s))
	})
	for _, p := range candidates {
		if e.canTake(rc, p, s, strictMode) {
			return e.commit(rc, p, s, false)
		}
	}
	return false
}

// equityScore favours people who have used little of their maximum for the post, with a bonus
// for multiplicity
func (e *Engine) equityScore(rc *RunContext, p *model.Person, pt model.PostType, margin float64) float64 {
	limit := 0
	if pt == model.PostNL {
		limit = e.tracker.NLAbsoluteMax(p, e.cfg.NLAbsoluteMaxFactor)
	} else {
		limit, _ = e.tracker.PostMax(p, pt, margin)
	}
	usage := 1.0
	if limit > 0 {
		usage = float64(e.tracker.Counters(p.Name).Post(pt)) / float64(limit)
	}
	score := (1 - usage) + e.cfg.MultiplicityBonus*float64(p.HalfParts-1)
	return score * rc.jitter(e.cfg.Jitter)
}

func (e *Engine) fillByScore(rc *RunContext, s *model.TimeSlot, candidates []*model.Person, mode placeMode, relaxed bool) bool {
	var best *model.Person
	bestScore := 0.0
	for _, p := range candidates {
		if !e.canTake(rc, p, s, mode) {
			continue
		}
		score := e.equityScore(rc, p, s.PostType, mode.margin)
		if best == nil || score > bestScore {
			best, bestScore = p, score
		}
	}
	if best == nil {
		return false
	}
	wasBlocked := relaxed && e.matrix.IsBlocked(best.Name, s.Date(), s.Period(), true)
	return e.commit(rc, best, s, wasBlocked)
}

// fillEquity balances the slot across everyone under all maxima
func (e *Engine) fillEquity(rc *RunContext, s *model.TimeSlot) bool {
	return e.fillByScore(rc, s, e.staff, strictMode, false)
}

// fillTypeFlex lets doctors exceed post maxima by the flex margin; group maxima stay strict
func (e *Engine) fillTypeFlex(rc *RunContext, s *model.TimeSlot) bool {
	return e.fillByScore(rc, s, e.doctors, placeMode{margin: e.cfg.TypeFlexMargin, respectSecondary: true}, false)
}

// fillRelaxed ignores secondary desiderata for doctors still under a minimum
func (e *Engine) fillRelaxed(rc *RunContext, s *model.TimeSlot) bool {
	var under []*model.Person
	for _, d := range e.doctors {
		if e.tracker.UnderMinimum(d) {
			under = append(under, d)
		}
	}
	return e.fillByScore(rc, s, under, placeMode{respectSecondary: false}, true)
}
