package distribution

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// AssignmentRecord is one placement made during a run, in the order it happened
type AssignmentRecord struct {
	Seq      int
	Stage    State
	Date     time.Time
	PostType model.PostType
	Site     string
	Person   string

	// Combination is the code the slot was placed under, empty for single posts
	Combination string

	// Relaxed is set when secondary desiderata were ignored for this placement
	Relaxed bool
}

// ShortfallEntry is a slot left open after the run
type ShortfallEntry struct {
	Date     time.Time
	PostType model.PostType
	Site     string
	Period   model.Period

	// Availability is the share of staff free on the slot's period
	Availability float64

	// LowAvailability is set when the period is critical, which explains the gap
	LowAvailability bool
}

// ShortfallReport lists every open working-weekday slot after distribution
type ShortfallReport struct {
	Entries    []ShortfallEntry
	ByPostType map[model.PostType]int
}

// Total returns the number of unfilled slots
func (r *ShortfallReport) Total() int {
	return len(r.Entries)
}

// PostTypes returns the post types with unfilled slots, sorted
func (r *ShortfallReport) PostTypes() []model.PostType {
	return slices.Sorted(maps.Keys(r.ByPostType))
}

func (r *ShortfallReport) sort() {
	slices.SortStableFunc(r.Entries, func(a, b ShortfallEntry) int {
		return cmp.Or(
			cmp.Compare(a.PostType, b.PostType),
			a.Date.Compare(b.Date),
			cmp.Compare(a.Site, b.Site),
		)
	})
}

// StageSummary describes how one stage went
type StageSummary struct {
	Stage    State
	Assigned int
	Duration time.Duration

	// Recovered is set when the stage panicked and was cut short
	Recovered bool
	Error     string
}

// Outcome represents the result of a distribution run
type Outcome struct {
	// Planning is the mutated planning
	Planning *model.Planning

	// Seed the run was started with
	Seed uint64

	// Log holds every placement in order
	Log []AssignmentRecord

	// Shortfall lists what could not be filled
	Shortfall *ShortfallReport

	// Combinations is the feasibility report computed before the combination stage
	Combinations *combinations.Report

	Stages []StageSummary

	// PreAttributionFailures counts pre-attributions that did not pass the rest rules
	PreAttributionFailures int

	// Success indicates every working-weekday slot was filled and no stage recovered from a panic
	Success bool
}

// AssignedBy returns the number of placements made by a stage
func (o *Outcome) AssignedBy(stage State) int {
	n := 0
	for _, r := range o.Log {
		if r.Stage == stage {
			n++
		}
	}
	return n
}
