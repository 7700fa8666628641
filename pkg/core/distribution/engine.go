package distribution

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/availability"
	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/quota"
	"github.com/jakechorley/oncall-roster/pkg/core/rules"
)

// ErrBackwardTransition is returned when the engine is asked to move to anything but the next state
var ErrBackwardTransition = errors.New("backward state transition")

// State is a step of the distribution state machine
type State int

const (
	StateIngest State = iota
	StateNL
	StateNAM
	StateCombinations
	StateResidual
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIngest:
		return "ingest"
	case StateNL:
		return "nl"
	case StateNAM:
		return "nam"
	case StateCombinations:
		return "combinations"
	case StateResidual:
		return "residual"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default tuning values
const (
	DefaultNightAdjacentCriticalAvailability = 0.40
	DefaultNLAbsoluteMaxFactor               = 1.5
	DefaultRefinementPasses                  = 3
	DefaultJitter                            = 0.05
	DefaultTypeFlexMargin                    = 0.2
	DefaultMultiplicityBonus                 = 0.1
)

// ScoreWeights weigh the terms of the night-adjacent leftover score
type ScoreWeights struct {
	GroupDistance float64 `yaml:"groupDistance"`
	CrossType     float64 `yaml:"crossType"`
	Workload      float64 `yaml:"workload"`
}

// Config tunes a distribution run. Zero fields take their default value; set Jitter
// negative to disable it.
type Config struct {
	// Seed drives every random choice of the run
	Seed uint64

	// Thresholds control critical period detection
	Thresholds availability.Thresholds

	// NightAdjacentCriticalAvailability is the evening availability ratio under which
	// night-adjacent slots are served first
	NightAdjacentCriticalAvailability float64

	// NLAbsoluteMaxFactor scales the NL interval maximum into the hard NL cap
	NLAbsoluteMaxFactor float64

	// TierWeights multiply combination scores by tier
	TierWeights map[model.Tier]float64

	// RefinementPasses caps the combination passes per day
	RefinementPasses int

	// Jitter is the relative random noise added to scores
	Jitter float64

	// TypeFlexMargin widens doctor post maxima in the third residual pass
	TypeFlexMargin float64

	// NightAdjacentWeights weigh the night-adjacent leftover score
	NightAdjacentWeights ScoreWeights

	// MultiplicityBonus favours full-time doctors in the equity pass
	MultiplicityBonus float64
}

// DefaultConfig returns the standard tuning
func DefaultConfig() Config {
	return Config{
		Thresholds:                        availability.DefaultThresholds(),
		NightAdjacentCriticalAvailability: DefaultNightAdjacentCriticalAvailability,
		NLAbsoluteMaxFactor:               DefaultNLAbsoluteMaxFactor,
		TierWeights: map[model.Tier]float64{
			model.TierHigh:   1.7,
			model.TierMedium: 1.0,
			model.TierLow:    0.4,
		},
		RefinementPasses:     DefaultRefinementPasses,
		Jitter:               DefaultJitter,
		TypeFlexMargin:       DefaultTypeFlexMargin,
		NightAdjacentWeights: ScoreWeights{GroupDistance: 0.4, CrossType: 0.3, Workload: 0.3},
		MultiplicityBonus:    DefaultMultiplicityBonus,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Thresholds.CriticalUnavailability == 0 {
		c.Thresholds.CriticalUnavailability = def.Thresholds.CriticalUnavailability
	}
	if c.Thresholds.GroupingTolerance == 0 {
		c.Thresholds.GroupingTolerance = def.Thresholds.GroupingTolerance
	}
	if c.NightAdjacentCriticalAvailability == 0 {
		c.NightAdjacentCriticalAvailability = def.NightAdjacentCriticalAvailability
	}
	if c.NLAbsoluteMaxFactor == 0 {
		c.NLAbsoluteMaxFactor = def.NLAbsoluteMaxFactor
	}
	if c.TierWeights == nil {
		c.TierWeights = def.TierWeights
	}
	if c.RefinementPasses == 0 {
		c.RefinementPasses = def.RefinementPasses
	}
	if c.Jitter == 0 {
		c.Jitter = def.Jitter
	}
	if c.TypeFlexMargin == 0 {
		c.TypeFlexMargin = def.TypeFlexMargin
	}
	if c.NightAdjacentWeights == (ScoreWeights{}) {
		c.NightAdjacentWeights = def.NightAdjacentWeights
	}
	if c.MultiplicityBonus == 0 {
		c.MultiplicityBonus = def.MultiplicityBonus
	}
	return c
}

// Input is what a run distributes
type Input struct {
	// Planning holds the slots; its PreAnalysis supplies the quota targets
	Planning *model.Planning

	Staff []*model.Person

	// Catalog defaults to the standard catalog
	Catalog *model.Catalog

	// Classifier defaults to plain weekday/weekend classification
	Classifier model.DayClassifier

	// Oracle defaults to the standard rest rules
	Oracle rules.Oracle

	PreAttributions []model.PreAttribution
}

// Option customises an Engine
type Option func(*Engine)

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer used for stage spans
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

type periodKey struct {
	date   time.Time
	period model.Period
}

type personDay struct {
	name string
	date time.Time
}

// Engine distributes the open working-weekday slots of a planning. An Engine runs once.
type Engine struct {
	cfg             Config
	planning        *model.Planning
	staff           []*model.Person
	persons         map[string]*model.Person
	doctors         []*model.Person
	auxiliaries     []*model.Person
	catalog         *model.Catalog
	classifier      model.DayClassifier
	oracle          rules.Oracle
	preAttributions []model.PreAttribution

	tracker *quota.Tracker
	matrix  *availability.Matrix

	// critical lists critical periods most constrained first; criticalRank indexes it
	critical     []availability.CriticalPeriod
	criticalRank map[periodKey]int

	// pairable marks pre-attributed days a combination may still complete
	pairable map[personDay]bool

	state       State
	log         []AssignmentRecord
	preFailures int
	combos      *combinations.Report

	logger  *zap.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// New creates an engine over the input. Staff order is kept for every tie-break that is
// not randomised.
func New(cfg Config, in Input, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if in.Planning == nil {
		return nil, fmt.Errorf("failed to create engine: planning is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if in.Catalog == nil {
		in.Catalog = model.StandardCatalog()
	}
	if in.Classifier == nil {
		in.Classifier = model.WeekClassifier{}
	}
	if in.Oracle == nil {
		in.Oracle = rules.NewStandard(rules.DefaultRestConfig())
	}
	if in.Planning.PreAnalysis == nil {
		logger.Warn("Planning has no pre-analysis, every quota check will fail closed")
	}

	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:             cfg,
		planning:        in.Planning,
		staff:           in.Staff,
		persons:         make(map[string]*model.Person, len(in.Staff)),
		catalog:         in.Catalog,
		classifier:      in.Classifier,
		oracle:          in.Oracle,
		preAttributions: in.PreAttributions,
		criticalRank:    make(map[periodKey]int),
		pairable:        make(map[personDay]bool),
		state:           StateIngest,
		logger:          logger,
		metrics:         NewNop(),
		tracer:          otel.Tracer("github.com/jakechorley/oncall-roster/pkg/core/distribution"),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range in.Staff {
		if _, dup := e.persons[p.Name]; dup {
			return nil, fmt.Errorf("failed to create engine: duplicate staff name %q", p.Name)
		}
		e.persons[p.Name] = p
		if p.IsDoctor() {
			e.doctors = append(e.doctors, p)
		} else {
			e.auxiliaries = append(e.auxiliaries, p)
		}
	}

	e.tracker = quota.NewTracker(in.Staff, in.Planning.PreAnalysis, in.Catalog, in.Classifier, logger)
	e.matrix = availability.NewMatrix(in.Staff, in.Planning, cfg.Thresholds)

	return e, nil
}

// Tracker exposes the quota tracker, for reporting
func (e *Engine) Tracker() *quota.Tracker {
	return e.tracker
}

// Matrix exposes the availability matrix, for reporting
func (e *Engine) Matrix() *availability.Matrix {
	return e.matrix
}

// State returns the current state
func (e *Engine) State() State {
	return e.state
}

// advance moves to the next state; anything else is refused
func (e *Engine) advance(next State) error {
	if next != e.state+1 {
		return fmt.Errorf("%w: %s to %s", ErrBackwardTransition, e.state, next)
	}
	e.state = next
	return nil
}

type stageFunc func(rc *RunContext)

// Run executes every stage in order and returns the outcome. Failures inside a stage are
// recovered and reported in the stage summary rather than returned.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	if e.state != StateIngest || len(e.log) > 0 {
		return nil, fmt.Errorf("%w: engine already ran", ErrBackwardTransition)
	}

	ctx, span := e.tracer.Start(ctx, "distribution.Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("seed", int64(e.cfg.Seed)),
		attribute.Int("staff", len(e.staff)),
		attribute.Int("days", len(e.planning.Days)),
	)

	rc := &RunContext{Ctx: ctx, Logger: e.logger, Metrics: e.metrics, Tracer: e.tracer, seed: e.cfg.Seed}

	stages := []struct {
		state State
		fn    stageFunc
	}{
		{StateIngest, e.ingest},
		{StateNL, e.distributeNL},
		{StateNAM, e.distributeNightAdjacent},
		{StateCombinations, e.distributeCombinations},
		{StateResidual, e.distributeResidual},
	}

	var summaries []StageSummary
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("distribution cancelled before %s: %w", st.state, err)
		}
		if i > 0 {
			if err := e.advance(st.state); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, e.runStage(rc, st.state, st.fn))
	}
	if err := e.advance(StateDone); err != nil {
		return nil, err
	}

	outcome := e.buildOutcome(summaries)
	span.SetAttributes(
		attribute.Int("assigned", len(outcome.Log)),
		attribute.Int("unfilled", outcome.Shortfall.Total()),
	)

	e.logger.Info("Distribution complete",
		zap.Uint64("seed", e.cfg.Seed),
		zap.Int("assigned", len(outcome.Log)),
		zap.Int("unfilled", outcome.Shortfall.Total()),
		zap.Bool("success", outcome.Success))

	return outcome, nil
}

// runStage runs one stage under its own span and rng, recovering from panics
func (e *Engine) runStage(rc *RunContext, state State, fn stageFunc) (summary StageSummary) {
	src := rc.forStage(state)
	ctx, span := e.tracer.Start(rc.Ctx, "distribution."+state.String())
	src.Ctx = ctx

	start := time.Now()
	before := len(e.log)
	summary.Stage = state

	func() {
		defer func() {
			if r := recover(); r != nil {
				summary.Recovered = true
				summary.Error = fmt.Sprint(r)
				src.Logger.Error("Stage failed, continuing with the next stage",
					zap.Any("panic", r),
					zap.Stack("stack"))
				span.SetStatus(codes.Error, summary.Error)
				src.Metrics.RecordRecovered(state.String())
			}
		}()
		fn(src)
	}()

	summary.Duration = time.Since(start)
	summary.Assigned = len(e.log) - before

	span.SetAttributes(attribute.Int("assigned", summary.Assigned))
	span.End()
	src.Metrics.ObserveStage(state.String(), summary.Duration)
	src.Logger.Info("Stage complete",
		zap.Int("assigned", summary.Assigned),
		zap.Duration("duration", summary.Duration))

	return summary
}

// placeMode selects how strictly a placement is checked
type placeMode struct {
	// margin widens doctor post maxima
	margin float64

	// respectSecondary is false only when relaxing secondary desiderata
	respectSecondary bool
}

var strictMode = placeMode{respectSecondary: true}

// workingDays returns the days the engine distributes, in date order
func (e *Engine) workingDays() []*model.DayPlanning {
	var out []*model.DayPlanning
	for _, d := range e.planning.Days {
		if d.IsWorkingWeekday() {
			out = append(out, d)
		}
	}
	return out
}

// isCritical reports whether the slot's period is a critical period
func (e *Engine) isCritical(date time.Time, period model.Period) bool {
	_, ok := e.criticalRank[periodKey{model.DateOf(date), period}]
	return ok
}

// orderCriticalFirst sorts slots: critical periods in criticality order, then the rest in date order
func (e *Engine) orderCriticalFirst(slots []*model.TimeSlot) {
	rank := func(s *model.TimeSlot) int {
		if r, ok := e.criticalRank[periodKey{s.Date(), s.Period()}]; ok {
			return r
		}
		return len(e.critical)
	}
	slices.SortStableFunc(slots, func(a, b *model.TimeSlot) int {
		return cmp.Or(
			cmp.Compare(rank(a), rank(b)),
			a.Start.Compare(b.Start),
		)
	})
}

// postCapOK checks the post maximum. NL uses the absolute NL maximum instead of the interval.
func (e *Engine) postCapOK(p *model.Person, pt model.PostType, margin float64) bool {
	if pt == model.PostNL {
		if !p.IsDoctor() {
			return false
		}
		return e.tracker.Counters(p.Name).Post(pt) < e.tracker.NLAbsoluteMax(p, e.cfg.NLAbsoluteMaxFactor)
	}
	return e.tracker.CanAssignPostWithMargin(p, pt, margin)
}

// canTake runs the engine guards then the oracle for a single slot
func (e *Engine) canTake(rc *RunContext, p *model.Person, s *model.TimeSlot, mode placeMode) bool {
	if !s.IsOpen() || s.PreAttributed {
		return false
	}
	def, ok := e.catalog.Post(s.PostType)
	if !ok {
		rc.Logger.Warn("Slot references unknown post", zap.String("post", string(s.PostType)))
		return false
	}
	if !def.Audience.Allows(p.Kind) {
		return false
	}

	date := s.Date()
	if e.planning.HasPeriod(p.Name, date, s.Period()) {
		return false
	}
	if e.matrix.IsBlocked(p.Name, date, s.Period(), mode.respectSecondary) {
		return false
	}
	if !e.postCapOK(p, s.PostType, mode.margin) {
		return false
	}
	if g, ok := e.tracker.GroupOf(s.PostType, date); ok && !e.tracker.CanAssignGroup(p, g, 1) {
		return false
	}
	return e.oracleAllows(rc, p, s, mode.respectSecondary)
}

// oracleAllows asks the oracle, treating a panic as a refusal
func (e *Engine) oracleAllows(rc *RunContext, p *model.Person, s *model.TimeSlot, respectSecondary bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rc.Logger.Error("Rest rule check failed",
				zap.String("person", p.Name),
				zap.Time("date", s.Date()),
				zap.String("post", string(s.PostType)),
				zap.Any("panic", r))
			ok = false
		}
	}()
	return e.oracle.CanAssign(p, s.Date(), s, e.planning, respectSecondary)
}

// commit places a single post and records it
func (e *Engine) commit(rc *RunContext, p *model.Person, s *model.TimeSlot, relaxed bool) bool {
	if err := e.planning.Assign(s, p.Name); err != nil {
		rc.Logger.Warn("Failed to assign slot", zap.String("person", p.Name), zap.Error(err))
		return false
	}
	e.tracker.UpdateAssignment(p, s.PostType, s.Date())
	e.record(rc, p, s, "", relaxed)
	return true
}

// tryCombination places both halves of a combination on a day, or nothing
func (e *Engine) tryCombination(rc *RunContext, p *model.Person, day *model.DayPlanning, combo model.Combination) bool {
	if !e.tracker.CanAssignCombination(p, combo.Code, day.Date) {
		return false
	}

	for _, first := range day.OpenSlots(combo.First) {
		if !e.canTake(rc, p, first, strictMode) {
			continue
		}

		// Hold the first half so the oracle judges the second half alongside it
		if err := e.planning.Assign(first, p.Name); err != nil {
			continue
		}
		for _, second := range day.OpenSlots(combo.Second) {
			if !e.canTake(rc, p, second, strictMode) {
				continue
			}
			if err := e.planning.Assign(second, p.Name); err != nil {
				continue
			}
			if err := e.tracker.UpdateCombination(p, combo.Code, day.Date); err != nil {
				rc.Logger.Warn("Failed to record combination", zap.String("person", p.Name), zap.Error(err))
				e.planning.Unassign(second)
				e.planning.Unassign(first)
				return false
			}
			e.record(rc, p, first, combo.Code, false)
			e.record(rc, p, second, combo.Code, false)
			return true
		}
		e.planning.Unassign(first)
		continue
	}
	return false
}

func (e *Engine) record(rc *RunContext, p *model.Person, s *model.TimeSlot, combo string, relaxed bool) {
	rec := AssignmentRecord{
		Seq:         len(e.log) + 1,
		Stage:       e.state,
		Date:        s.Date(),
		PostType:    s.PostType,
		Site:        s.Site,
		Person:      p.Name,
		Combination: combo,
		Relaxed:     relaxed,
	}
	e.log = append(e.log, rec)
	rc.Metrics.RecordAssignment(e.state.String(), p.Kind.String())
	rc.Logger.Debug("Assigned slot",
		zap.Int("seq", rec.Seq),
		zap.String("person", p.Name),
		zap.Time("date", rec.Date),
		zap.String("post", string(rec.PostType)),
		zap.String("site", rec.Site),
		zap.String("combination", combo))
}

// shortfall lists open working-weekday slots
func (e *Engine) shortfall() *ShortfallReport {
	report := &ShortfallReport{ByPostType: make(map[model.PostType]int)}
	for _, day := range e.workingDays() {
		for _, s := range day.Slots {
			if !s.IsOpen() {
				continue
			}
			period := s.Period()
			report.Entries = append(report.Entries, ShortfallEntry{
				Date:            day.Date,
				PostType:        s.PostType,
				Site:            s.Site,
				Period:          period,
				Availability:    e.matrix.AvailabilityRatio(day.Date, period),
				LowAvailability: e.matrix.IsCritical(day.Date, period),
			})
			report.ByPostType[s.PostType]++
		}
	}
	report.sort()
	return report
}

// buildOutcome creates the final outcome report
func (e *Engine) buildOutcome(summaries []StageSummary) *Outcome {
	shortfall := e.shortfall()
	for _, pt := range shortfall.PostTypes() {
		e.metrics.RecordUnfilled(string(pt), shortfall.ByPostType[pt])
	}

	recovered := slices.ContainsFunc(summaries, func(s StageSummary) bool { return s.Recovered })

	return &Outcome{
		Planning:               e.planning,
		Seed:                   e.cfg.Seed,
		Log:                    slices.Clone(e.log),
		Shortfall:              shortfall,
		Combinations:           e.combos,
		Stages:                 summaries,
		PreAttributionFailures: e.preFailures,
		Success:                shortfall.Total() == 0 && !recovered,
	}
}
