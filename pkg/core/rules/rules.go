package rules

import (
	"time"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Rule names
const (
	RuleDesiderata             = "desiderata"
	RuleNightLong              = "night-long"
	RuleNightAdjacent          = "night-adjacent"
	RuleMorningAfterNight      = "morning-after-night"
	RuleConsecutiveNights      = "consecutive-nights"
	RuleConsecutiveWorkingDays = "consecutive-working-days"
	RuleMaxPostsPerDay         = "max-posts-per-day"
)

// Oracle decides whether a person may take a slot given the live planning.
// Implementations must not mutate the planning.
type Oracle interface {
	// CanAssign runs every rule. respectSecondary=false lets secondary desiderata through;
	// primary desiderata always block.
	CanAssign(p *model.Person, date time.Time, slot *model.TimeSlot, planning *model.Planning, respectSecondary bool) bool

	// Check runs a single named rule. Unknown names return false.
	Check(name string, p *model.Person, date time.Time, slot *model.TimeSlot, planning *model.Planning) bool
}

// Request is the candidate placement a rule is asked about
type Request struct {
	Person   *model.Person
	Date     time.Time
	Slot     *model.TimeSlot
	Planning *model.Planning

	// RespectSecondary is false only in relaxed passes
	RespectSecondary bool
}

// Rule defines a single rest or safety constraint
type Rule interface {
	// Name returns the identifier used by Check and in logs
	Name() string

	// Allows acts as a veto - if ANY rule returns false, the slot cannot be taken
	Allows(req Request) bool
}

// RestConfig tunes the standard rules
type RestConfig struct {
	// NightStart is the clock time from which a post counts as a night post
	NightStart model.ClockTime

	// MinRestAfterNight is the minimum gap between the end of a night-adjacent post and the next post
	MinRestAfterNight time.Duration

	MaxConsecutiveNights      int `validate:"min=0"`
	MaxConsecutiveWorkingDays int `validate:"min=0"`
	MaxPostsPerDay            int `validate:"min=0"`
}

// DefaultRestConfig returns the standard rest rules
func DefaultRestConfig() RestConfig {
	return RestConfig{
		NightStart:                model.Clock(20, 0),
		MinRestAfterNight:         11 * time.Hour,
		MaxConsecutiveNights:      2,
		MaxConsecutiveWorkingDays: 6,
		MaxPostsPerDay:            2,
	}
}

// Standard is the default oracle composed of named rules
type Standard struct {
	rules  []Rule
	byName map[string]Rule
}

var _ Oracle = (*Standard)(nil)

// NewStandard creates the default oracle. Zero fields of cfg take their default value.
func NewStandard(cfg RestConfig) *Standard {
	def := DefaultRestConfig()
	if cfg.NightStart == 0 {
		cfg.NightStart = def.NightStart
	}
	if cfg.MinRestAfterNight == 0 {
		cfg.MinRestAfterNight = def.MinRestAfterNight
	}
	if cfg.MaxConsecutiveNights == 0 {
		cfg.MaxConsecutiveNights = def.MaxConsecutiveNights
	}
	if cfg.MaxConsecutiveWorkingDays == 0 {
		cfg.MaxConsecutiveWorkingDays = def.MaxConsecutiveWorkingDays
	}
	if cfg.MaxPostsPerDay == 0 {
		cfg.MaxPostsPerDay = def.MaxPostsPerDay
	}

	return NewOracle(
		desiderataRule{},
		nightLongRule{},
		nightAdjacentRule{minRest: cfg.MinRestAfterNight},
		morningAfterNightRule{nightStart: cfg.NightStart},
		consecutiveNightsRule{nightStart: cfg.NightStart, max: cfg.MaxConsecutiveNights},
		consecutiveWorkingDaysRule{max: cfg.MaxConsecutiveWorkingDays},
		maxPostsPerDayRule{max: cfg.MaxPostsPerDay},
	)
}

// NewOracle composes an oracle from arbitrary rules
func NewOracle(rules ...Rule) *Standard {
	s := &Standard{byName: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		s.rules = append(s.rules, r)
		s.byName[r.Name()] = r
	}
	return s
}

// CanAssign implements Oracle
func (s *Standard) CanAssign(p *model.Person, date time.Time, slot *model.TimeSlot, planning *model.Planning, respectSecondary bool) bool {
	req := Request{Person: p, Date: model.DateOf(date), Slot: slot, Planning: planning, RespectSecondary: respectSecondary}
	for _, r := range s.rules {
		if !r.Allows(req) {
			return false
		}
	}
	return true
}

// Check implements Oracle
func (s *Standard) Check(name string, p *model.Person, date time.Time, slot *model.TimeSlot, planning *model.Planning) bool {
	r, ok := s.byName[name]
	if !ok {
		return false
	}
	return r.Allows(Request{Person: p, Date: model.DateOf(date), Slot: slot, Planning: planning, RespectSecondary: true})
}

// Explain returns the names of the rules refusing the placement
func (s *Standard) Explain(p *model.Person, date time.Time, slot *model.TimeSlot, planning *model.Planning, respectSecondary bool) []string {
	req := Request{Person: p, Date: model.DateOf(date), Slot: slot, Planning: planning, RespectSecondary: respectSecondary}
	var out []string
	for _, r := range s.rules {
		if !r.Allows(req) {
			out = append(out, r.Name())
		}
	}
	return out
}

// Names returns the rule names in evaluation order
func (s *Standard) Names() []string {
	out := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Name())
	}
	return out
}
