package combinations

import (
	"cmp"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/quota"
)

// Status summarises whether a combination can meet its demand
type Status string

const (
	StatusOK           Status = "ok"
	StatusTight        Status = "tight"
	StatusInsufficient Status = "insufficient"
)

// Ratio thresholds
const (
	okRatio    = 1.0
	tightRatio = 0.8
)

// Entry is the feasibility of one combination over the planning
type Entry struct {
	Code string
	Tier model.Tier

	// Opportunities is the number of days-times-pairs on which both halves have open slots
	Opportunities int

	// Demand is the number of times doctors could still take the combination under their quotas
	Demand int

	// EligibleDoctors is the number of doctors with non-zero demand
	EligibleDoctors int

	// Ratio is Opportunities / Demand, +Inf when there is no demand
	Ratio  float64
	Status Status
}

// Report lists every combination, least feasible first
type Report struct {
	Entries []Entry
}

// Insufficient returns the entries that cannot meet their demand
func (r *Report) Insufficient() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status == StatusInsufficient {
			out = append(out, e)
		}
	}
	return out
}

// Entry returns the entry for a combination code
func (r *Report) Entry(code string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}

// Log writes the report at debug level and each insufficient combination as a warning
func (r *Report) Log(logger *zap.Logger) {
	for _, e := range r.Entries {
		fields := []zap.Field{
			zap.String("combination", e.Code),
			zap.String("tier", e.Tier.String()),
			zap.Int("opportunities", e.Opportunities),
			zap.Int("demand", e.Demand),
			zap.Int("eligibleDoctors", e.EligibleDoctors),
			zap.Float64("ratio", e.Ratio),
		}
		if e.Status == StatusInsufficient {
			logger.Warn("Combination is short of opportunities", fields...)
			continue
		}
		logger.Debug("Combination feasibility", append(fields, zap.String("status", string(e.Status)))...)
	}
}

// Analyze compares, for each combination of the catalog, how often both halves are open on
// the same working weekday against how many more times doctors could hold it. The report is
// informational and never gates distribution.
func Analyze(planning *model.Planning, staff []*model.Person, tracker *quota.Tracker, catalog *model.Catalog) *Report {
	report := &Report{}

	for _, combo := range catalog.Combinations() {
		entry := Entry{Code: combo.Code, Tier: combo.Tier}

		// Opportunities over working weekdays only
		for _, day := range planning.Days {
			if !day.IsWorkingWeekday() {
				continue
			}
			entry.Opportunities += min(len(day.OpenSlots(combo.First)), len(day.OpenSlots(combo.Second)))
		}

		// Demand from doctors' remaining headroom
		for _, p := range staff {
			if !p.IsDoctor() {
				continue
			}
			n := headroom(tracker, catalog, p, combo)
			if n > 0 {
				entry.Demand += n
				entry.EligibleDoctors++
			}
		}

		entry.Ratio = ratio(entry.Opportunities, entry.Demand)
		entry.Status = statusOf(entry.Ratio)
		report.Entries = append(report.Entries, entry)
	}

	slices.SortStableFunc(report.Entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Ratio, b.Ratio), cmp.Compare(a.Code, b.Code))
	})

	return report
}

// headroom is how many more times a doctor can hold the combination on a weekday: the
// smaller post headroom, limited by each weekday group's headroom divided by how many
// halves fall into it.
func headroom(tracker *quota.Tracker, catalog *model.Catalog, p *model.Person, combo model.Combination) int {
	c := tracker.Counters(p.Name)

	n := math.MaxInt
	for _, pt := range combo.Posts() {
		if def, ok := catalog.Post(pt); !ok || !def.Audience.Allows(p.Kind) {
			return 0
		}
		limit, ok := tracker.PostMax(p, pt, 0)
		if !ok {
			return 0
		}
		n = min(n, max(limit-c.Post(pt), 0))
	}

	incs, err := catalog.GroupIncrements(combo.Code, model.DayTypeWeekday)
	if err != nil {
		return 0
	}
	for g, inc := range incs {
		iv, ok := tracker.GroupInterval(p, g)
		if !ok || inc == 0 {
			continue
		}
		n = min(n, max(iv.Max-c.Group(g), 0)/inc)
	}

	return n
}

func ratio(opportunities, demand int) float64 {
	if demand == 0 {
		return math.Inf(1)
	}
	return float64(opportunities) / float64(demand)
}

func statusOf(r float64) Status {
	switch {
	case r >= okRatio:
		return StatusOK
	case r >= tightRatio:
		return StatusTight
	default:
		return StatusInsufficient
	}
}
