package services

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/availability"
	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/quota"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// CriticalPeriodsResult lists the critical periods of a roster with the staff size they
// were measured against
type CriticalPeriodsResult struct {
	Periods []availability.CriticalPeriod
	Staff   int
}

// CriticalPeriods reports the periods where unavailability reaches the critical threshold,
// most constrained first. The seed only orders near-ties.
func CriticalPeriods(
	ctx context.Context,
	source StaffSource,
	cfg *config.Config,
	logger *zap.Logger,
	doc *rosterfile.Document,
	seed *uint64,
) (*CriticalPeriodsResult, error) {
	in, err := prepare(ctx, source, cfg, doc, logger)
	if err != nil {
		return nil, err
	}
	s, err := resolveSeed(seed, cfg, in.roster)
	if err != nil {
		return nil, err
	}

	thresholds := cfg.Distribution(s).Thresholds
	def := availability.DefaultThresholds()
	if thresholds.CriticalUnavailability == 0 {
		thresholds.CriticalUnavailability = def.CriticalUnavailability
	}
	if thresholds.GroupingTolerance == 0 {
		thresholds.GroupingTolerance = def.GroupingTolerance
	}
	matrix := availability.NewMatrix(in.roster.Staff, in.roster.Planning, thresholds)
	periods := matrix.IdentifyCriticalPeriods(rand.New(rand.NewPCG(s, s)))

	logger.Info("Identified critical periods",
		zap.Int("count", len(periods)),
		zap.Int("staff", len(in.roster.Staff)))

	return &CriticalPeriodsResult{Periods: periods, Staff: len(in.roster.Staff)}, nil
}

// AnalyzeCombinations reports, before any distribution, how the open combination
// opportunities compare with what doctors can still hold. Slots already held in the
// document count against the quotas.
func AnalyzeCombinations(
	ctx context.Context,
	source StaffSource,
	cfg *config.Config,
	logger *zap.Logger,
	doc *rosterfile.Document,
) (*combinations.Report, error) {
	in, err := prepare(ctx, source, cfg, doc, logger)
	if err != nil {
		return nil, err
	}

	planning := in.roster.Planning
	tracker := quota.NewTracker(in.roster.Staff, planning.PreAnalysis, in.catalog, in.calendar, logger)
	for _, p := range in.roster.Staff {
		for _, s := range planning.AssignedSlots(p.Name) {
			tracker.Seed(p, s.PostType, s.Date())
		}
	}

	report := combinations.Analyze(planning, in.roster.Staff, tracker, in.catalog)
	report.Log(logger)
	return report, nil
}
