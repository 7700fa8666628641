package services

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/calendar"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/rules"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// StaffSource supplies the staff pool with desiderata, replacing the document's staff list
type StaffSource interface {
	ListStaff(ctx context.Context, cfg config.SheetsConfig) ([]rosterfile.StaffEntry, error)
}

// prepared is everything a run needs, built from the config and the roster document
type prepared struct {
	roster   *rosterfile.Roster
	catalog  *model.Catalog
	calendar *calendar.Calendar
	oracle   rules.Oracle
}

// prepare pulls staff from the source when the config names a spreadsheet, then builds the
// catalog, holiday calendar, rest rules and roster
func prepare(ctx context.Context, source StaffSource, cfg *config.Config, doc *rosterfile.Document, logger *zap.Logger) (*prepared, error) {
	if doc == nil {
		return nil, fmt.Errorf("roster document is required")
	}

	if source != nil && cfg.Sheets.SpreadsheetID != "" {
		logger.Debug("Fetching staff from spreadsheet", zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
		staff, err := source.ListStaff(ctx, cfg.Sheets)
		if err != nil {
			return nil, fmt.Errorf("failed to list staff: %w", err)
		}
		withStaff := *doc
		withStaff.Staff = staff
		if err := rosterfile.Validate(&withStaff); err != nil {
			return nil, fmt.Errorf("staff from spreadsheet is invalid: %w", err)
		}
		doc = &withStaff
		logger.Debug("Fetched staff", zap.Int("count", len(staff)))
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	cal, err := cfg.Holidays.Calendar()
	if err != nil {
		return nil, fmt.Errorf("failed to build holiday calendar: %w", err)
	}
	restCfg, err := cfg.Rest.Rules()
	if err != nil {
		return nil, err
	}

	roster, err := doc.Build(catalog, cal)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster: %w", err)
	}

	if holidays := cal.HolidaysBetween(roster.Planning.Start, roster.Planning.End); len(holidays) > 0 {
		logger.Debug("Planning covers public holidays", zap.Int("count", len(holidays)))
	}

	return &prepared{
		roster:   roster,
		catalog:  catalog,
		calendar: cal,
		oracle:   rules.NewStandard(restCfg),
	}, nil
}

// resolveSeed picks the explicit seed, then the configured one, then the document's, and
// falls back to a random seed
func resolveSeed(explicit *uint64, cfg *config.Config, roster *rosterfile.Roster) (uint64, error) {
	switch {
	case explicit != nil:
		return *explicit, nil
	case cfg.Seed != nil:
		return *cfg.Seed, nil
	case roster.Seed != nil:
		return *roster.Seed, nil
	}
	return newSeed()
}

// newSeed generates a random seed using crypto/rand
func newSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
