package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// DistributeStore defines the database operations needed to persist a run
type DistributeStore interface {
	InsertPlanning(ctx context.Context, planning *db.Planning) error
	InsertAssignments(ctx context.Context, assignments []db.Assignment) error
}

// DistributeOptions tunes a single run
type DistributeOptions struct {
	// Seed overrides the configured and document seeds when set
	Seed *uint64

	// DryRun skips persistence
	DryRun bool

	// Reset clears assignments carried by the document, except preserved ones, before the run
	Reset bool

	// Metrics receives engine metrics; nil disables them
	Metrics distribution.Metrics
}

// DistributionResult represents the result of a distribution run
type DistributionResult struct {
	Planning    *db.Planning
	Assignments []db.Assignment
	Outcome     *distribution.Outcome
	Roster      *rosterfile.Roster

	// Cleared counts assignments removed by a reset before the run
	Cleared   int
	Persisted bool
}

// DistributeRoster builds the planning from the roster document, runs the distribution engine
// and stores the planning with every held slot unless it is a dry run
func DistributeRoster(
	ctx context.Context,
	store DistributeStore,
	source StaffSource,
	cfg *config.Config,
	logger *zap.Logger,
	doc *rosterfile.Document,
	opts DistributeOptions,
) (*DistributionResult, error) {
	logger.Debug("Starting distribution", zap.Bool("dry_run", opts.DryRun))

	in, err := prepare(ctx, source, cfg, doc, logger)
	if err != nil {
		return nil, err
	}

	seed, err := resolveSeed(opts.Seed, cfg, in.roster)
	if err != nil {
		return nil, err
	}

	result := &DistributionResult{Roster: in.roster}
	if opts.Reset {
		result.Cleared = distribution.Reset(in.roster.Planning)
		logger.Info("Cleared existing assignments", zap.Int("count", result.Cleared))
	}

	var engineOpts []distribution.Option
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, distribution.WithMetrics(opts.Metrics))
	}

	engine, err := distribution.New(cfg.Distribution(seed), distribution.Input{
		Planning:        in.roster.Planning,
		Staff:           in.roster.Staff,
		Catalog:         in.catalog,
		Classifier:      in.calendar,
		Oracle:          in.oracle,
		PreAttributions: in.roster.PreAttributions,
	}, logger, engineOpts...)
	if err != nil {
		return nil, err
	}

	outcome, err := engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run distribution: %w", err)
	}
	result.Outcome = outcome

	planning := &db.Planning{
		ID:        uuid.New().String(),
		Name:      in.roster.Name,
		Start:     in.roster.Planning.Start.Format(model.DateLayout),
		End:       in.roster.Planning.End.Format(model.DateLayout),
		Seed:      seed,
		Success:   outcome.Success,
		Unfilled:  outcome.Shortfall.Total(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	result.Planning = planning
	result.Assignments = assignmentRecords(planning.ID, outcome)

	logger.Info("Distribution finished",
		zap.String("planning_id", planning.ID),
		zap.Uint64("seed", seed),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("unfilled", planning.Unfilled))

	if opts.DryRun {
		logger.Info("Dry run, nothing stored")
		return result, nil
	}

	if err := store.InsertPlanning(ctx, planning); err != nil {
		return nil, fmt.Errorf("failed to insert planning: %w", err)
	}
	if err := store.InsertAssignments(ctx, result.Assignments); err != nil {
		return nil, fmt.Errorf("failed to insert assignments: %w", err)
	}
	result.Persisted = true

	return result, nil
}

type slotKey struct {
	date     time.Time
	postType model.PostType
	site     string
	person   string
}

// assignmentRecords converts every held slot of the planning, in planning order, annotated
// with how the run placed it. Slots held before the run carry no stage.
func assignmentRecords(planningID string, outcome *distribution.Outcome) []db.Assignment {
	placed := make(map[slotKey]distribution.AssignmentRecord, len(outcome.Log))
	for _, rec := range outcome.Log {
		placed[slotKey{rec.Date, rec.PostType, rec.Site, rec.Person}] = rec
	}

	var out []db.Assignment
	for _, day := range outcome.Planning.Days {
		for _, s := range day.Slots {
			if s.IsOpen() {
				continue
			}
			a := db.Assignment{
				ID:         uuid.New().String(),
				PlanningID: planningID,
				Date:       day.Date.Format(model.DateLayout),
				PostType:   string(s.PostType),
				Site:       s.Site,
				Person:     s.Assignee,
				Preserved:  distribution.Preserved(s),
			}
			if rec, ok := placed[slotKey{day.Date, s.PostType, s.Site, s.Assignee}]; ok {
				a.Stage = rec.Stage.String()
				a.Combination = rec.Combination
				a.Relaxed = rec.Relaxed
			}
			out = append(out, a)
		}
	}
	return out
}
