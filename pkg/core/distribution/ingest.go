package distribution

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// ingest seeds counters from slots assigned before the run, replays pre-attributions and
// identifies the critical periods every later stage orders by.
func (e *Engine) ingest(rc *RunContext) {
	e.critical = e.matrix.IdentifyCriticalPeriods(rc.Rng)
	for i, cp := range e.critical {
		e.criticalRank[periodKey{cp.Date, cp.Period}] = i
	}
	rc.Logger.Debug("Identified critical periods", zap.Int("count", len(e.critical)))

	// Seed counters from slots that already have an assignee (pre-attributed earlier or fixed,
	// e.g. Friday long nights from the weekend planning)
	seeded := 0
	for _, day := range e.planning.Days {
		for _, s := range day.Slots {
			if s.IsOpen() {
				continue
			}
			p, ok := e.persons[s.Assignee]
			if !ok {
				rc.Logger.Warn("Assigned slot names unknown person",
					zap.String("person", s.Assignee),
					zap.Time("date", s.Date()),
					zap.String("post", string(s.PostType)))
				continue
			}
			e.tracker.Seed(p, s.PostType, s.Date())
			seeded++
		}
	}

	// Replay pre-attributions in a stable order
	pending := slices.Clone(e.preAttributions)
	slices.SortStableFunc(pending, func(a, b model.PreAttribution) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Period, b.Period),
			cmp.Compare(a.Person, b.Person),
		)
	})

	replayed := 0
	for _, pa := range pending {
		if e.replay(rc, pa) {
			replayed++
		}
	}

	rc.Logger.Info("Ingested existing assignments",
		zap.Int("seeded", seeded),
		zap.Int("preAttributions", replayed),
		zap.Int("failedValidation", e.preFailures))
}

// replay fixes one pre-attribution onto its slot. A pre-attribution the rest rules refuse is
// kept, counted, and its day stays open for a combination to complete it.
func (e *Engine) replay(rc *RunContext, pa model.PreAttribution) bool {
	fields := []zap.Field{
		zap.String("person", pa.Person),
		zap.Time("date", pa.Date),
		zap.String("period", pa.Period.String()),
		zap.String("post", string(pa.PostType)),
	}

	p, ok := e.persons[pa.Person]
	if !ok {
		rc.Logger.Warn("Pre-attribution names unknown person", fields...)
		return false
	}
	day, ok := e.planning.Day(pa.Date)
	if !ok {
		rc.Logger.Warn("Pre-attribution falls outside the planning", fields...)
		return false
	}

	var slot *model.TimeSlot
	for _, s := range day.Slots {
		if s.PostType != pa.PostType || s.Period() != pa.Period {
			continue
		}
		if s.Assignee == p.Name {
			// Already in place and counted by the seeding pass
			s.PreAttributed = true
			rc.Logger.Debug("Pre-attribution already applied", fields...)
			return false
		}
		if slot == nil && s.IsOpen() {
			slot = s
		}
	}
	if slot == nil {
		rc.Logger.Warn("No open slot matches pre-attribution", fields...)
		return false
	}

	valid := e.oracleAllows(rc, p, slot, true)

	if err := e.planning.Assign(slot, p.Name); err != nil {
		rc.Logger.Warn("Failed to apply pre-attribution", append(fields, zap.Error(err))...)
		return false
	}
	slot.PreAttributed = true
	e.tracker.Seed(p, slot.PostType, day.Date)
	e.record(rc, p, slot, "", false)

	if !valid {
		e.preFailures++
		e.pairable[personDay{p.Name, day.Date}] = true
		rc.Logger.Warn("Pre-attribution breaks a rest rule, keeping it", fields...)
	}
	return true
}
