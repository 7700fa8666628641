// Package sqlite provides a SQLite-backed roster storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/sqlite/migrations"
)

const migrationTable = "schema_migrations"

// Store persists plannings and assignments in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ db.Database = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// applyMigrations executes each embedded migration at most once
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range sqlFiles {
		var found int
		err := sqlDB.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := sqlDB.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUp returns the SQL in the -- +migrate Up section
func extractUp(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}

// GetPlannings returns every stored planning, oldest first.
func (s *Store) GetPlannings(ctx context.Context) ([]db.Planning, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, seed, success, unfilled, created_at
		FROM plannings
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query plannings: %w", err)
	}
	defer rows.Close()

	var plannings []db.Planning
	for rows.Next() {
		var p db.Planning
		var seed, createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Start, &p.End, &seed, &p.Success, &p.Unfilled, &createdAt); err != nil {
			return nil, fmt.Errorf("scan planning: %w", err)
		}
		p.Seed = uint64(seed)
		p.CreatedAt = fromMillis(createdAt).Format(time.RFC3339)
		plannings = append(plannings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plannings: %w", err)
	}
	return plannings, nil
}

// InsertPlanning stores one planning record.
func (s *Store) InsertPlanning(ctx context.Context, planning *db.Planning) error {
	if planning == nil || strings.TrimSpace(planning.ID) == "" {
		return fmt.Errorf("planning id is required")
	}
	createdAt := time.Now().UTC()
	if planning.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, planning.CreatedAt)
		if err != nil {
			return fmt.Errorf("parse planning created_at: %w", err)
		}
		createdAt = parsed
	}

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO plannings (id, name, start_date, end_date, seed, success, unfilled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		planning.ID, planning.Name, planning.Start, planning.End, int64(planning.Seed),
		planning.Success, planning.Unfilled, toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("insert planning: %w", err)
	}
	return nil
}

// GetAssignments returns the assignments of a planning ordered by date.
func (s *Store) GetAssignments(ctx context.Context, planningID string) ([]db.Assignment, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, planning_id, assignment_date, post_type, site, person, stage, combination, relaxed, preserved
		FROM assignments
		WHERE planning_id = ?
		ORDER BY assignment_date, post_type, person`, planningID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		if err := rows.Scan(&a.ID, &a.PlanningID, &a.Date, &a.PostType, &a.Site, &a.Person,
			&a.Stage, &a.Combination, &a.Relaxed, &a.Preserved); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

// InsertAssignments stores assignments in one transaction.
func (s *Store) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (id, planning_id, assignment_date, post_type, site, person, stage, combination, relaxed, preserved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.PlanningID, a.Date, a.PostType, a.Site, a.Person, a.Stage, a.Combination, a.Relaxed, a.Preserved); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteAssignments removes a planning's assignments, optionally keeping preserved ones.
func (s *Store) DeleteAssignments(ctx context.Context, planningID string, keepPreserved bool) (int, error) {
	query := `DELETE FROM assignments WHERE planning_id = ?`
	if keepPreserved {
		query += ` AND preserved = 0`
	}
	res, err := s.sqlDB.ExecContext(ctx, query, planningID)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted assignments: %w", err)
	}
	return int(n), nil
}
