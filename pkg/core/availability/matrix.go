package availability

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Default thresholds
const (
	DefaultCriticalUnavailability = 0.35
	DefaultGroupingTolerance      = 0.05
)

// Thresholds control critical period detection
type Thresholds struct {
	// CriticalUnavailability is the share of unavailable staff from which a period is critical
	CriticalUnavailability float64

	// GroupingTolerance is the unavailability spread within which critical periods are shuffled together
	GroupingTolerance float64
}

// DefaultThresholds returns the standard thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalUnavailability: DefaultCriticalUnavailability,
		GroupingTolerance:      DefaultGroupingTolerance,
	}
}

// cell records the strongest desiderata blocking a period
type cell uint8

const (
	cellAvailable cell = iota
	cellSecondary
	cellPrimary
)

// CriticalPeriod is a (date, period) where a large share of staff is unavailable
type CriticalPeriod struct {
	Date           time.Time
	Period         model.Period
	Unavailability float64
	Available      int
}

// Matrix is the person x date x period availability grid
type Matrix struct {
	staff      []*model.Person
	persons    map[string]*model.Person
	grid       map[string]map[time.Time][3]cell
	dates      []time.Time
	thresholds Thresholds
}

// NewMatrix builds the grid over the planning days. Every cell starts available and is
// cleared wherever one of the person's desiderata overlaps it.
func NewMatrix(staff []*model.Person, planning *model.Planning, thresholds Thresholds) *Matrix {
	m := &Matrix{
		staff:      staff,
		persons:    make(map[string]*model.Person, len(staff)),
		grid:       make(map[string]map[time.Time][3]cell, len(staff)),
		thresholds: thresholds,
	}

	for _, day := range planning.Days {
		m.dates = append(m.dates, model.DateOf(day.Date))
	}

	for _, p := range staff {
		m.persons[p.Name] = p
		rows := make(map[time.Time][3]cell, len(m.dates))
		for _, d := range m.dates {
			rows[d] = cellsFor(p, d)
		}
		m.grid[p.Name] = rows
	}

	return m
}

func cellsFor(p *model.Person, date time.Time) [3]cell {
	var cells [3]cell
	for _, period := range model.Periods {
		prio, blocked := p.BlockedBy(date, period)
		switch {
		case !blocked:
			cells[period] = cellAvailable
		case prio == model.PriorityPrimary:
			cells[period] = cellPrimary
		default:
			cells[period] = cellSecondary
		}
	}
	return cells
}

func (m *Matrix) cell(name string, date time.Time, period model.Period) (cell, bool) {
	rows, ok := m.grid[name]
	if !ok {
		return cellPrimary, false
	}
	d := model.DateOf(date)
	cells, ok := rows[d]
	if !ok {
		// Outside the planning range, read the desiderata directly
		cells = cellsFor(m.persons[name], d)
	}
	return cells[period], true
}

// GetPeriodAvailability reports whether a person has no desiderata on the period.
// Unknown persons are unavailable.
func (m *Matrix) GetPeriodAvailability(name string, date time.Time, period model.Period) bool {
	c, _ := m.cell(name, date, period)
	return c == cellAvailable
}

// IsBlocked reports whether desiderata forbid the period. Primary desiderata always
// block; secondary ones only while they are respected.
func (m *Matrix) IsBlocked(name string, date time.Time, period model.Period, respectSecondary bool) bool {
	c, _ := m.cell(name, date, period)
	switch c {
	case cellPrimary:
		return true
	case cellSecondary:
		return respectSecondary
	default:
		return false
	}
}

// GetAvailablePersonnel returns the names of staff available on the period, in staff order
func (m *Matrix) GetAvailablePersonnel(date time.Time, period model.Period) []string {
	var out []string
	for _, p := range m.staff {
		if m.GetPeriodAvailability(p.Name, date, period) {
			out = append(out, p.Name)
		}
	}
	return out
}

// AvailabilityRatio returns the share of staff available on the period
func (m *Matrix) AvailabilityRatio(date time.Time, period model.Period) float64 {
	if len(m.staff) == 0 {
		return 0
	}
	return float64(len(m.GetAvailablePersonnel(date, period))) / float64(len(m.staff))
}

// IsCritical reports whether the unavailability of the period reaches the critical threshold
func (m *Matrix) IsCritical(date time.Time, period model.Period) bool {
	if len(m.staff) == 0 {
		return false
	}
	return 1-m.AvailabilityRatio(date, period) >= m.thresholds.CriticalUnavailability
}

// IdentifyCriticalPeriods lists the critical periods of the planning, most constrained first:
// descending unavailability, then ascending available count. Entries within the grouping
// tolerance of each other are shuffled with rng so that near-ties do not always resolve
// in date order.
func (m *Matrix) IdentifyCriticalPeriods(rng *rand.Rand) []CriticalPeriod {
	if len(m.staff) == 0 {
		return nil
	}

	var out []CriticalPeriod
	for _, d := range m.dates {
		for _, period := range model.Periods {
			available := len(m.GetAvailablePersonnel(d, period))
			unavailability := 1 - float64(available)/float64(len(m.staff))
			if unavailability < m.thresholds.CriticalUnavailability {
				continue
			}
			out = append(out, CriticalPeriod{
				Date:           d,
				Period:         period,
				Unavailability: unavailability,
				Available:      available,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b CriticalPeriod) int {
		return cmp.Or(
			cmp.Compare(b.Unavailability, a.Unavailability),
			cmp.Compare(a.Available, b.Available),
			a.Date.Compare(b.Date),
			cmp.Compare(a.Period, b.Period),
		)
	})

	if rng == nil {
		return out
	}

	const epsilon = 1e-9
	for i := 0; i < len(out); {
		j := i + 1
		for j < len(out) && out[i].Unavailability-out[j].Unavailability <= m.thresholds.GroupingTolerance+epsilon {
			j++
		}
		group := out[i:j]
		rng.Shuffle(len(group), func(a, b int) {
			group[a], group[b] = group[b], group[a]
		})
		i = j
	}

	return out
}
