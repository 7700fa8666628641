package distribution

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// distributeNL hands out long nights. Doctors under their NL minimum are served first,
// largest remaining minimum and then multiplicity first, each walking the non-Friday
// slots in date order. The remaining slots are then dealt one by one to the doctor with
// the fewest long nights, ties broken at random.
func (e *Engine) distributeNL(rc *RunContext) {
	var slots []*model.TimeSlot
	for _, day := range e.workingDays() {
		slots = append(slots, day.OpenSlots(model.PostNL)...)
	}
	if len(slots) == 0 {
		return
	}

	nl := func(p *model.Person) int {
		return e.tracker.Counters(p.Name).Post(model.PostNL)
	}

	// Minimum phase
	type need struct {
		doctor    *model.Person
		remaining int
	}
	var needs []need
	for _, d := range e.doctors {
		iv, ok := e.tracker.PostInterval(d, model.PostNL)
		if !ok {
			continue
		}
		if rem := iv.Min - nl(d); rem > 0 {
			needs = append(needs, need{d, rem})
		}
	}
	slices.SortStableFunc(needs, func(a, b need) int {
		return cmp.Or(
			cmp.Compare(b.remaining, a.remaining),
			cmp.Compare(b.doctor.HalfParts, a.doctor.HalfParts),
		)
	})

	for _, n := range needs {
		iv, _ := e.tracker.PostInterval(n.doctor, model.PostNL)
		for _, s := range slots {
			if nl(n.doctor) >= iv.Min {
				break
			}
			if s.Date().Weekday() == time.Friday {
				continue
			}
			if e.canTake(rc, n.doctor, s, strictMode) {
				e.commit(rc, n.doctor, s, false)
			}
		}
		if nl(n.doctor) < iv.Min {
			rc.Logger.Debug("Doctor still under NL minimum",
				zap.String("person", n.doctor.Name),
				zap.Int("held", nl(n.doctor)),
				zap.Int("min", iv.Min))
		}
	}

	// Round-robin phase
	for _, s := range slots {
		if !s.IsOpen() {
			continue
		}
		candidates := slices.Clone(e.doctors)
		shuffle(rc, candidates)
		slices.SortStableFunc(candidates, func(a, b *model.Person) int {
			return cmp.Compare(nl(a), nl(b))
		})
		for _, d := range candidates {
			if e.canTake(rc, d, s, strictMode) {
				e.commit(rc, d, s, false)
				break
			}
		}
	}
}
