package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/oncall-roster/pkg/db"
)

// GetPlannings retrieves all planning records
func (d *DB) GetPlannings(ctx context.Context) ([]db.Planning, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, seed, success, unfilled, created_at
		FROM planning
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plannings: %w", err)
	}
	defer rows.Close()

	var plannings []db.Planning
	for rows.Next() {
		var p db.Planning
		var start, end, createdAt time.Time
		var seed int64
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &seed, &p.Success, &p.Unfilled, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan planning: %w", err)
		}
		p.Start = start.Format("2006-01-02")
		p.End = end.Format("2006-01-02")
		p.Seed = uint64(seed)
		p.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		plannings = append(plannings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plannings: %w", err)
	}

	return plannings, nil
}

// InsertPlanning inserts a new planning record
func (d *DB) InsertPlanning(ctx context.Context, planning *db.Planning) error {
	createdAt := time.Now().UTC()
	if planning.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, planning.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to parse planning created_at: %w", err)
		}
		createdAt = parsed
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO planning (id, name, start_date, end_date, seed, success, unfilled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, planning.ID, planning.Name, planning.Start, planning.End, int64(planning.Seed),
		planning.Success, planning.Unfilled, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert planning: %w", err)
	}
	return nil
}
