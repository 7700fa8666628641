package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/db"
)

// ResetStore defines the database operations needed to reset a planning
type ResetStore interface {
	GetPlannings(ctx context.Context) ([]db.Planning, error)
	DeleteAssignments(ctx context.Context, planningID string, keepPreserved bool) (int, error)
}

// ResetResult represents the result of resetting a stored planning
type ResetResult struct {
	Planning db.Planning
	Cleared  int
}

// ResetPlanning removes a stored planning's assignments except the preserved ones
// (pre-attributions and Friday long nights). An empty planningID resets the latest planning.
func ResetPlanning(ctx context.Context, store ResetStore, logger *zap.Logger, planningID string) (*ResetResult, error) {
	plannings, err := store.GetPlannings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plannings: %w", err)
	}

	var target db.Planning
	if planningID == "" {
		latest, ok := db.LatestPlanning(plannings)
		if !ok {
			return nil, fmt.Errorf("no plannings found")
		}
		target = latest
	} else {
		idx := slices.IndexFunc(plannings, func(p db.Planning) bool { return p.ID == planningID })
		if idx < 0 {
			return nil, fmt.Errorf("planning %s not found", planningID)
		}
		target = plannings[idx]
	}

	logger.Debug("Resetting planning", zap.String("planning_id", target.ID))
	cleared, err := store.DeleteAssignments(ctx, target.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to delete assignments: %w", err)
	}
	logger.Info("Planning reset", zap.String("planning_id", target.ID), zap.Int("cleared", cleared))

	return &ResetResult{Planning: target, Cleared: cleared}, nil
}

// ListPlannings returns stored plannings, most recent first
func ListPlannings(ctx context.Context, store db.PlanningStore) ([]db.Planning, error) {
	plannings, err := store.GetPlannings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plannings: %w", err)
	}
	slices.SortStableFunc(plannings, func(a, b db.Planning) int {
		if c := strings.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Start, a.Start)
	})
	return plannings, nil
}
