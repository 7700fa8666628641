package model

import (
	"maps"
	"slices"
)

// Interval bounds how many times a doctor should hold a post type or group
type Interval struct {
	Min int `yaml:"min" json:"min" validate:"min=0"`
	Max int `yaml:"max" json:"max" validate:"gtefield=Min"`
}

// DoctorTargets are a doctor's pre-analysis intervals
type DoctorTargets struct {
	Posts  map[PostType]Interval
	Groups map[Group]Interval

	// NLAbsoluteMax caps long nights independently of the NL interval when set
	NLAbsoluteMax *int
}

// AuxiliaryTargets are flat quotas per day type and post type
type AuxiliaryTargets map[DayType]map[PostType]int

// PreAnalysis holds the per-person quota targets computed upstream
type PreAnalysis struct {
	Doctors     map[string]DoctorTargets
	Auxiliaries map[string]AuxiliaryTargets
}

// DoctorTargetsFor returns the targets of a doctor
func (pa *PreAnalysis) DoctorTargetsFor(name string) (DoctorTargets, bool) {
	if pa == nil {
		return DoctorTargets{}, false
	}
	t, ok := pa.Doctors[name]
	return t, ok
}

// PostInterval returns a doctor's interval for a post type
func (pa *PreAnalysis) PostInterval(name string, pt PostType) (Interval, bool) {
	t, ok := pa.DoctorTargetsFor(name)
	if !ok {
		return Interval{}, false
	}
	iv, ok := t.Posts[pt]
	return iv, ok
}

// GroupInterval returns a doctor's interval for a statistic group
func (pa *PreAnalysis) GroupInterval(name string, g Group) (Interval, bool) {
	t, ok := pa.DoctorTargetsFor(name)
	if !ok {
		return Interval{}, false
	}
	iv, ok := t.Groups[g]
	return iv, ok
}

// Groups returns the groups a doctor has intervals for, sorted
func (pa *PreAnalysis) Groups(name string) []Group {
	t, ok := pa.DoctorTargetsFor(name)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(t.Groups))
}

// AuxiliaryQuota returns an auxiliary's flat quota for a post on a day type
func (pa *PreAnalysis) AuxiliaryQuota(name string, dt DayType, pt PostType) (int, bool) {
	if pa == nil {
		return 0, false
	}
	t, ok := pa.Auxiliaries[name]
	if !ok {
		return 0, false
	}
	q, ok := t[dt][pt]
	return q, ok
}

// Counters tracks how many posts, groups and combinations a person holds
type Counters struct {
	ByPost        map[PostType]int
	ByGroup       map[Group]int
	ByCombination map[string]int
}

// NewCounters returns empty counters
func NewCounters() *Counters {
	return &Counters{
		ByPost:        make(map[PostType]int),
		ByGroup:       make(map[Group]int),
		ByCombination: make(map[string]int),
	}
}

// Post returns the post count, zero when absent
func (c *Counters) Post(pt PostType) int {
	if c == nil {
		return 0
	}
	return c.ByPost[pt]
}

// Group returns the group count, zero when absent
func (c *Counters) Group(g Group) int {
	if c == nil {
		return 0
	}
	return c.ByGroup[g]
}

// Combination returns the combination count, zero when absent
func (c *Counters) Combination(code string) int {
	if c == nil {
		return 0
	}
	return c.ByCombination[code]
}

// TotalPosts returns the number of posts held across every type
func (c *Counters) TotalPosts() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, n := range c.ByPost {
		total += n
	}
	return total
}
