package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the two categories of staff
type Kind int

const (
	// KindDoctor staff are bounded by min/max intervals per post type and statistic group
	KindDoctor Kind = iota
	// KindAuxiliary staff ("CAT") are bounded by flat per-post quotas
	KindAuxiliary
)

func (k Kind) String() string {
	if k == KindAuxiliary {
		return "auxiliary"
	}
	return "doctor"
}

// ParseKind converts a kind name into a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor", "medecin":
		return KindDoctor, nil
	case "auxiliary", "cat":
		return KindAuxiliary, nil
	}
	return 0, fmt.Errorf("unknown staff kind %q", s)
}

// Person is a member of staff who can hold posts.
// Kind selects which quota regime applies to them.
type Person struct {
	Name string
	Kind Kind

	// HalfParts is 2 for full-time and 1 for half-time doctors.
	// Auxiliaries always carry 1.
	HalfParts int

	// Desiderata are the periods the person asked not to work
	Desiderata []Desiderata
}

// NewDoctor creates a doctor with the given multiplicity
func NewDoctor(name string, halfParts int, desiderata ...Desiderata) *Person {
	if halfParts < 1 {
		halfParts = 1
	}
	return &Person{Name: name, Kind: KindDoctor, HalfParts: halfParts, Desiderata: desiderata}
}

// NewAuxiliary creates an auxiliary staff member
func NewAuxiliary(name string, desiderata ...Desiderata) *Person {
	return &Person{Name: name, Kind: KindAuxiliary, HalfParts: 1, Desiderata: desiderata}
}

// IsDoctor reports whether the person is subject to doctor quotas
func (p *Person) IsDoctor() bool {
	return p.Kind == KindDoctor
}

// IsAuxiliary reports whether the person is subject to auxiliary quotas
func (p *Person) IsAuxiliary() bool {
	return p.Kind == KindAuxiliary
}

// BlockedBy returns the strongest desiderata priority covering the period and whether any does
func (p *Person) BlockedBy(date time.Time, period Period) (Priority, bool) {
	blocked := false
	strongest := PrioritySecondary
	for _, d := range p.Desiderata {
		if !d.Covers(date, period) {
			continue
		}
		blocked = true
		if d.Priority == PriorityPrimary {
			strongest = PriorityPrimary
		}
	}
	return strongest, blocked
}

// Desiderata is a request not to work a period over an inclusive date range
type Desiderata struct {
	Start    time.Time
	End      time.Time
	Period   Period
	Priority Priority
}

// Covers reports whether the desiderata applies to the period on the given date
func (d Desiderata) Covers(date time.Time, period Period) bool {
	if d.Period != period {
		return false
	}
	day := DateOf(date)
	return !day.Before(DateOf(d.Start)) && !day.After(DateOf(d.End))
}

// PreAttribution fixes a person onto a post before distribution starts
type PreAttribution struct {
	Person   string
	Date     time.Time
	Period   Period
	PostType PostType
}
