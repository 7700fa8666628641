package quota

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Tracker holds every person's running counters and answers whether another post,
// group increment or combination still fits their pre-analysis targets.
type Tracker struct {
	pa         *model.PreAnalysis
	catalog    *model.Catalog
	classifier model.DayClassifier
	persons    map[string]*model.Person
	counters   map[string]*model.Counters
	logger     *zap.Logger

	// warned dedupes missing-target warnings per person and post
	warned map[string]bool
}

// Remaining is the headroom left before each maximum is reached
type Remaining struct {
	Posts  map[model.PostType]int
	Groups map[model.Group]int
}

// NewTracker creates a tracker with zeroed counters for every person
func NewTracker(staff []*model.Person, pa *model.PreAnalysis, catalog *model.Catalog, classifier model.DayClassifier, logger *zap.Logger) *Tracker {
	if classifier == nil {
		classifier = model.WeekClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		pa:         pa,
		catalog:    catalog,
		classifier: classifier,
		persons:    make(map[string]*model.Person, len(staff)),
		counters:   make(map[string]*model.Counters, len(staff)),
		logger:     logger,
		warned:     make(map[string]bool),
	}
	for _, p := range staff {
		t.persons[p.Name] = p
		t.counters[p.Name] = model.NewCounters()
	}
	return t
}

// Counters returns a person's live counters
func (t *Tracker) Counters(name string) *model.Counters {
	c, ok := t.counters[name]
	if !ok {
		c = model.NewCounters()
		t.counters[name] = c
	}
	return c
}

// DayType classifies a date with the tracker's classifier
func (t *Tracker) DayType(date time.Time) model.DayType {
	return t.classifier.DayType(date)
}

// GroupOf returns the statistic group of a post on a date
func (t *Tracker) GroupOf(pt model.PostType, date time.Time) (model.Group, bool) {
	return t.catalog.GroupOf(pt, t.DayType(date))
}

func (t *Tracker) warnMissing(p *model.Person, what string) {
	key := p.Name + "/" + what
	if t.warned[key] {
		return
	}
	t.warned[key] = true
	t.logger.Warn("Missing pre-analysis target",
		zap.String("person", p.Name),
		zap.String("kind", p.Kind.String()),
		zap.String("target", what))
}

// PostInterval returns the person's interval for a post. Auxiliary quotas are flat so
// their interval has min equal to max.
func (t *Tracker) PostInterval(p *model.Person, pt model.PostType) (model.Interval, bool) {
	if p.IsDoctor() {
		return t.pa.PostInterval(p.Name, pt)
	}
	q, ok := t.pa.AuxiliaryQuota(p.Name, model.DayTypeWeekday, pt)
	return model.Interval{Min: q, Max: q}, ok
}

// GroupInterval returns a doctor's interval for a statistic group
func (t *Tracker) GroupInterval(p *model.Person, g model.Group) (model.Interval, bool) {
	if !p.IsDoctor() {
		return model.Interval{}, false
	}
	return t.pa.GroupInterval(p.Name, g)
}

// PostMax returns the maximum count allowed for a post. margin widens doctor maxima
// (0.2 allows 20% more, rounded up); auxiliary quotas never widen.
func (t *Tracker) PostMax(p *model.Person, pt model.PostType, margin float64) (int, bool) {
	iv, ok := t.PostInterval(p, pt)
	if !ok {
		return 0, false
	}
	if margin > 0 && p.IsDoctor() {
		return int(math.Ceil(float64(iv.Max) * (1 + margin))), true
	}
	return iv.Max, true
}

// NLAbsoluteMax is the hard cap on long nights: the explicit value when the pre-analysis
// has one, otherwise the NL interval maximum scaled by factor.
func (t *Tracker) NLAbsoluteMax(p *model.Person, factor float64) int {
	if !p.IsDoctor() {
		return 0
	}
	targets, ok := t.pa.DoctorTargetsFor(p.Name)
	if !ok {
		return 0
	}
	if targets.NLAbsoluteMax != nil {
		return *targets.NLAbsoluteMax
	}
	iv, ok := targets.Posts[model.PostNL]
	if !ok || iv.Max <= 0 {
		return 0
	}
	return max(iv.Max, int(math.Ceil(float64(iv.Max)*factor)))
}

// CanAssignPost reports whether the person's post counter is below the post maximum.
// Missing targets fail closed.
func (t *Tracker) CanAssignPost(p *model.Person, pt model.PostType) bool {
	return t.CanAssignPostWithMargin(p, pt, 0)
}

// CanAssignPostWithMargin is CanAssignPost with a widened doctor maximum
func (t *Tracker) CanAssignPostWithMargin(p *model.Person, pt model.PostType, margin float64) bool {
	if def, ok := t.catalog.Post(pt); !ok || !def.Audience.Allows(p.Kind) {
		return false
	}
	limit, ok := t.PostMax(p, pt, margin)
	if !ok {
		t.warnMissing(p, string(pt))
		return false
	}
	return t.Counters(p.Name).Post(pt) < limit
}

// CanAssignGroup reports whether n more posts fit under a doctor's group maximum.
// Groups without an interval are unconstrained and auxiliaries have no group limits.
func (t *Tracker) CanAssignGroup(p *model.Person, g model.Group, n int) bool {
	if !p.IsDoctor() {
		return true
	}
	iv, ok := t.pa.GroupInterval(p.Name, g)
	if !ok {
		return true
	}
	return t.Counters(p.Name).Group(g)+n <= iv.Max
}

// CanAssignCombination reports whether both halves of a combination fit the person's
// post quotas and, for doctors, whether the statistic groups of the day type can absorb
// them. Halves in the same group need room for two.
func (t *Tracker) CanAssignCombination(p *model.Person, code string, date time.Time) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Combination check failed",
				zap.String("person", p.Name),
				zap.String("combination", code),
				zap.Any("panic", r))
			ok = false
		}
	}()

	combo, err := t.catalog.Combination(code)
	if err != nil {
		t.logger.Warn("Rejecting combination", zap.String("person", p.Name), zap.Error(err))
		return false
	}

	for _, pt := range combo.Posts() {
		if !t.CanAssignPost(p, pt) {
			return false
		}
	}

	if !p.IsDoctor() {
		return true
	}

	incs, err := t.catalog.GroupIncrements(code, t.DayType(date))
	if err != nil {
		t.logger.Warn("Rejecting combination", zap.String("person", p.Name), zap.Error(err))
		return false
	}
	for g, n := range incs {
		if !t.CanAssignGroup(p, g, n) {
			return false
		}
	}
	return true
}

// UpdateAssignment records a single post placed on a date
func (t *Tracker) UpdateAssignment(p *model.Person, pt model.PostType, date time.Time) {
	c := t.Counters(p.Name)
	c.ByPost[pt]++
	if g, ok := t.GroupOf(pt, date); ok {
		c.ByGroup[g]++
	}
}

// Seed counts a post found already assigned when the run starts
func (t *Tracker) Seed(p *model.Person, pt model.PostType, date time.Time) {
	t.UpdateAssignment(p, pt, date)
}

// UpdateCombination records a combination: each half counts as a post in its group,
// and the combination counter grows by one.
func (t *Tracker) UpdateCombination(p *model.Person, code string, date time.Time) error {
	combo, err := t.catalog.Combination(code)
	if err != nil {
		return fmt.Errorf("failed to record combination for %s: %w", p.Name, err)
	}
	for _, pt := range combo.Posts() {
		t.UpdateAssignment(p, pt, date)
	}
	t.Counters(p.Name).ByCombination[code]++
	return nil
}

// RecordPairing counts a combination completed around an already-counted post
func (t *Tracker) RecordPairing(p *model.Person, code string, added model.PostType, date time.Time) error {
	if _, err := t.catalog.Combination(code); err != nil {
		return fmt.Errorf("failed to record pairing for %s: %w", p.Name, err)
	}
	t.UpdateAssignment(p, added, date)
	t.Counters(p.Name).ByCombination[code]++
	return nil
}

// GetRemainingQuotas returns how far each counter is from its maximum, clamped at zero.
// Group headroom is reported for doctors only.
func (t *Tracker) GetRemainingQuotas(p *model.Person) Remaining {
	rem := Remaining{
		Posts:  make(map[model.PostType]int),
		Groups: make(map[model.Group]int),
	}
	c := t.Counters(p.Name)

	if p.IsDoctor() {
		targets, ok := t.pa.DoctorTargetsFor(p.Name)
		if !ok {
			t.warnMissing(p, "doctor targets")
			return rem
		}
		for pt, iv := range targets.Posts {
			rem.Posts[pt] = max(iv.Max-c.Post(pt), 0)
		}
		for g, iv := range targets.Groups {
			rem.Groups[g] = max(iv.Max-c.Group(g), 0)
		}
		return rem
	}

	if t.pa != nil {
		for pt, q := range t.pa.Auxiliaries[p.Name][model.DayTypeWeekday] {
			rem.Posts[pt] = max(q-c.Post(pt), 0)
		}
	}
	return rem
}

// PostDeficit returns how many posts of a type the person still needs to reach the minimum
func (t *Tracker) PostDeficit(p *model.Person, pt model.PostType) int {
	iv, ok := t.PostInterval(p, pt)
	if !ok {
		return 0
	}
	return max(iv.Min-t.Counters(p.Name).Post(pt), 0)
}

// GroupDeficits returns, for each group a doctor is below the minimum of, the missing count
func (t *Tracker) GroupDeficits(p *model.Person) map[model.Group]int {
	out := make(map[model.Group]int)
	if !p.IsDoctor() {
		return out
	}
	targets, ok := t.pa.DoctorTargetsFor(p.Name)
	if !ok {
		return out
	}
	c := t.Counters(p.Name)
	for g, iv := range targets.Groups {
		if d := iv.Min - c.Group(g); d > 0 {
			out[g] = d
		}
	}
	return out
}

// UnderMinimum reports whether a doctor is below any post or group minimum
func (t *Tracker) UnderMinimum(p *model.Person) bool {
	if !p.IsDoctor() {
		return false
	}
	targets, ok := t.pa.DoctorTargetsFor(p.Name)
	if !ok {
		return false
	}
	c := t.Counters(p.Name)
	for _, pt := range slices.Sorted(maps.Keys(targets.Posts)) {
		if c.Post(pt) < targets.Posts[pt].Min {
			return true
		}
	}
	return len(t.GroupDeficits(p)) > 0
}

// WorkloadRatio is the share of the person's summed post maxima already used
func (t *Tracker) WorkloadRatio(p *model.Person) float64 {
	total := 0
	if p.IsDoctor() {
		targets, _ := t.pa.DoctorTargetsFor(p.Name)
		for _, iv := range targets.Posts {
			total += iv.Max
		}
	} else if t.pa != nil {
		for _, q := range t.pa.Auxiliaries[p.Name][model.DayTypeWeekday] {
			total += q
		}
	}
	if total == 0 {
		return 1
	}
	return float64(t.Counters(p.Name).TotalPosts()) / float64(total)
}
