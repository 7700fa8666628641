package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/oncall-roster/pkg/db"
)

// GetAssignments retrieves the assignment records of a planning
func (d *DB) GetAssignments(ctx context.Context, planningID string) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, planning_id, assignment_date, post_type, site, person, stage, combination, relaxed, preserved
		FROM assignment
		WHERE planning_id = $1
		ORDER BY assignment_date, post_type, person
	`, planningID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var date time.Time
		var combination *string
		if err := rows.Scan(&a.ID, &a.PlanningID, &date, &a.PostType, &a.Site, &a.Person,
			&a.Stage, &combination, &a.Relaxed, &a.Preserved); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Date = date.Format("2006-01-02")
		if combination != nil {
			a.Combination = *combination
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// InsertAssignments inserts assignment records into the database
func (d *DB) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range assignments {
		var combination *string
		if a.Combination != "" {
			combination = &a.Combination
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO assignment (id, planning_id, assignment_date, post_type, site, person, stage, combination, relaxed, preserved)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, a.ID, a.PlanningID, a.Date, a.PostType, a.Site, a.Person, a.Stage, combination, a.Relaxed, a.Preserved)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteAssignments removes a planning's assignments, optionally keeping preserved ones
func (d *DB) DeleteAssignments(ctx context.Context, planningID string, keepPreserved bool) (int, error) {
	query := `DELETE FROM assignment WHERE planning_id = $1`
	if keepPreserved {
		query += ` AND NOT preserved`
	}

	tag, err := d.pool.Exec(ctx, query, planningID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
