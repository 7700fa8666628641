package distribution

import (
	"cmp"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// orderedDays returns working days with a critical period first, in criticality order, then
// the remaining days in date order.
func (e *Engine) orderedDays() []*model.DayPlanning {
	days := e.workingDays()
	rank := make(map[*model.DayPlanning]int, len(days))
	for _, d := range days {
		rank[d] = len(e.critical)
		for _, period := range model.Periods {
			if r, ok := e.criticalRank[periodKey{d.Date, period}]; ok {
				rank[d] = min(rank[d], r)
			}
		}
	}
	slices.SortStableFunc(days, func(a, b *model.DayPlanning) int {
		return cmp.Compare(rank[a], rank[b])
	})
	return days
}

// distributeCombinations pairs two posts on the same day for doctors below a statistic group
// minimum, and for auxiliaries with quota left. Each day gets up to RefinementPasses passes.
func (e *Engine) distributeCombinations(rc *RunContext) {
	e.combos = combinations.Analyze(e.planning, e.staff, e.tracker, e.catalog)
	e.combos.Log(rc.Logger)

	combos := e.catalog.Combinations()

	for _, day := range e.orderedDays() {
		e.completePairable(rc, day, combos)

		for pass := 1; pass <= e.cfg.RefinementPasses; pass++ {
			placed := 0
			for _, d := range e.rankByGroupShortfall(rc) {
				if combo, ok := e.bestCombination(rc, d, day, combos); ok {
					rc.Logger.Debug("Placed combination",
						zap.String("person", d.Name),
						zap.Time("date", day.Date),
						zap.String("combination", combo.Code),
						zap.Int("pass", pass))
					placed++
				}
			}
			placed += e.auxiliaryCombinations(rc, day, combos)
			if placed == 0 {
				break
			}
		}
	}
}

// groupShortfall is the sum of each group's deficit relative to its minimum
func (e *Engine) groupShortfall(d *model.Person) float64 {
	deficits := e.tracker.GroupDeficits(d)
	total := 0.0
	for _, g := range slices.Sorted(maps.Keys(deficits)) {
		iv, _ := e.tracker.GroupInterval(d, g)
		total += float64(deficits[g]) / float64(max(iv.Min, 1))
	}
	return total
}

// rankByGroupShortfall returns doctors below a statistic group minimum, largest weighted
// shortfall first
func (e *Engine) rankByGroupShortfall(rc *RunContext) []*model.Person {
	type ranked struct {
		doctor *model.Person
		score  float64
	}
	var out []ranked
	for _, d := range e.doctors {
		if s := e.groupShortfall(d); s > 0 {
			out = append(out, ranked{d, s * rc.jitter(e.cfg.Jitter)})
		}
	}
	slices.SortStableFunc(out, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})
	doctors := make([]*model.Person, len(out))
	for i, r := range out {
		doctors[i] = r.doctor
	}
	return doctors
}

// combinationValue is the tier weight times how much of the doctor's group deficits the
// combination covers; zero when it covers none.
func (e *Engine) combinationValue(d *model.Person, day *model.DayPlanning, combo model.Combination) float64 {
	incs, err := e.catalog.GroupIncrements(combo.Code, e.tracker.DayType(day.Date))
	if err != nil {
		return 0
	}
	deficits := e.tracker.GroupDeficits(d)
	covered := 0
	for g, n := range incs {
		covered += min(n, deficits[g])
	}
	return e.cfg.TierWeights[combo.Tier] * float64(covered)
}

// bestCombination tries the doctor's combinations from most to least valuable and places the
// first legal one
func (e *Engine) bestCombination(rc *RunContext, d *model.Person, day *model.DayPlanning, combos []model.Combination) (model.Combination, bool) {
	type candidate struct {
		combo model.Combination
		value float64
	}
	var candidates []candidate
	for _, c := range combos {
		if v := e.combinationValue(d, day, c); v > 0 {
			candidates = append(candidates, candidate{c, v})
		}
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(b.value, a.value)
	})

	for _, c := range candidates {
		if e.tryCombination(rc, d, day, c.combo) {
			return c.combo, true
		}
	}
	return model.Combination{}, false
}

// auxiliaryCombinations gives each auxiliary with quota left at most one combination on the day,
// most remaining quota first
func (e *Engine) auxiliaryCombinations(rc *RunContext, day *model.DayPlanning, combos []model.Combination) int {
	remaining := func(a *model.Person) int {
		total := 0
		for _, n := range e.tracker.GetRemainingQuotas(a).Posts {
			total += n
		}
		return total
	}

	candidates := slices.Clone(e.auxiliaries)
	shuffle(rc, candidates)
	slices.SortStableFunc(candidates, func(a, b *model.Person) int {
		return cmp.Compare(remaining(b), remaining(a))
	})

	placed := 0
	for _, a := range candidates {
		if remaining(a) == 0 || e.planning.WorksOn(a.Name, day.Date) {
			continue
		}
		for _, c := range combos {
			if e.tryCombination(rc, a, day, c) {
				placed++
				break
			}
		}
	}
	return placed
}

// completePairable adds the missing half to pre-attributed days that failed validation
func (e *Engine) completePairable(rc *RunContext, day *model.DayPlanning, combos []model.Combination) {
	for _, name := range e.pairableOn(day) {
		p := e.persons[name]
		held := e.planning.SlotsOf(name, day.Date)
		if len(held) != 1 {
			continue
		}
		fixed := held[0]

		for _, c := range combos {
			var missing model.PostType
			switch fixed.PostType {
			case c.First:
				missing = c.Second
			case c.Second:
				missing = c.First
			default:
				continue
			}
			if !e.pairingFits(p, c, missing, day) {
				continue
			}
			if e.completeWith(rc, p, day, c, missing) {
				delete(e.pairable, personDay{name, day.Date})
				break
			}
		}
	}
}

func (e *Engine) pairableOn(day *model.DayPlanning) []string {
	var names []string
	for k := range e.pairable {
		if k.date.Equal(day.Date) {
			names = append(names, k.name)
		}
	}
	slices.Sort(names)
	return names
}

// pairingFits checks the added half's post maximum and the group maximum after pairing
func (e *Engine) pairingFits(p *model.Person, c model.Combination, missing model.PostType, day *model.DayPlanning) bool {
	if !e.postCapOK(p, missing, 0) {
		return false
	}
	if g, ok := e.tracker.GroupOf(missing, day.Date); ok && !e.tracker.CanAssignGroup(p, g, 1) {
		return false
	}
	return true
}

func (e *Engine) completeWith(rc *RunContext, p *model.Person, day *model.DayPlanning, c model.Combination, missing model.PostType) bool {
	for _, s := range day.OpenSlots(missing) {
		if !e.canTake(rc, p, s, strictMode) {
			continue
		}
		if err := e.planning.Assign(s, p.Name); err != nil {
			continue
		}
		if err := e.tracker.RecordPairing(p, c.Code, missing, day.Date); err != nil {
			rc.Logger.Warn("Failed to record pairing", zap.String("person", p.Name), zap.Error(err))
			e.planning.Unassign(s)
			return false
		}
		e.record(rc, p, s, c.Code, false)
		return true
	}
	return false
}
