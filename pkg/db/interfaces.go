package db

import (
	"context"
	"slices"
	"strings"
)

// PlanningStore defines the interface for planning database operations
type PlanningStore interface {
	GetPlannings(ctx context.Context) ([]Planning, error)
	InsertPlanning(ctx context.Context, planning *Planning) error
}

// AssignmentStore defines the interface for assignment database operations
type AssignmentStore interface {
	GetAssignments(ctx context.Context, planningID string) ([]Assignment, error)
	InsertAssignments(ctx context.Context, assignments []Assignment) error

	// DeleteAssignments removes a planning's assignments, keeping preserved ones when asked,
	// and returns how many were removed
	DeleteAssignments(ctx context.Context, planningID string, keepPreserved bool) (int, error)
}

// Database defines the interface for all database operations.
// Both postgres.DB and sqlite.Store implement this interface.
type Database interface {
	PlanningStore
	AssignmentStore
	Close() error
}

// LatestPlanning returns the most recently created planning, or false when there is none
func LatestPlanning(plannings []Planning) (Planning, bool) {
	if len(plannings) == 0 {
		return Planning{}, false
	}
	return slices.MaxFunc(plannings, func(a, b Planning) int {
		if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Start, b.Start)
	}), true
}
