package sheetsclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// Expected column names in the staff tab
var staffFields = []string{
	"Name",
	"Kind",
	"Half parts",
}

// Expected column names in the desiderata tab
var desiderataFields = []string{
	"Name",
	"Start",
	"End",
	"Period",
	"Priority",
}

// ListStaff reads the staff tab and attaches each person's desiderata from the desiderata tab
func (c *Client) ListStaff(ctx context.Context, cfg config.SheetsConfig) ([]rosterfile.StaffEntry, error) {
	staffValues, err := c.GetValues(ctx, cfg.SpreadsheetID, cfg.StaffTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff data: %w", err)
	}
	staff, err := parseStaff(staffValues)
	if err != nil {
		return nil, fmt.Errorf("failed to parse staff: %w", err)
	}

	desiderataValues, err := c.GetValues(ctx, cfg.SpreadsheetID, cfg.DesiderataTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get desiderata data: %w", err)
	}
	byName, err := parseDesiderata(desiderataValues)
	if err != nil {
		return nil, fmt.Errorf("failed to parse desiderata: %w", err)
	}

	for i := range staff {
		staff[i].Desiderata = byName[staff[i].Name]
		delete(byName, staff[i].Name)
	}
	for name := range byName {
		return nil, fmt.Errorf("desiderata listed for unknown staff member %q", name)
	}

	return staff, nil
}

// sheet indexes the header row of a tab so rows can be read by column name
type sheet struct {
	index map[string]int
}

func newSheet(raw [][]interface{}, fields []string) (*sheet, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	s := &sheet{index: make(map[string]int, len(fields))}
	for _, field := range fields {
		s.index[field] = -1
		for i, cell := range raw[0] {
			if cellStr, ok := cell.(string); ok && strings.EqualFold(strings.TrimSpace(cellStr), field) {
				s.index[field] = i
				break
			}
		}
		if s.index[field] == -1 {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
	}
	return s, nil
}

func (s *sheet) get(field string, row []interface{}) string {
	index := s.index[field]
	if index >= len(row) {
		return ""
	}
	switch v := row[index].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// parseStaff converts the staff tab; rows without a name are skipped
func parseStaff(raw [][]interface{}) ([]rosterfile.StaffEntry, error) {
	s, err := newSheet(raw, staffFields)
	if err != nil {
		return nil, err
	}

	staff := make([]rosterfile.StaffEntry, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]
		name := s.get("Name", row)
		if name == "" {
			continue
		}

		entry := rosterfile.StaffEntry{
			Name: name,
			Kind: strings.ToLower(s.get("Kind", row)),
		}
		if hp := s.get("Half parts", row); hp != "" {
			n, err := strconv.Atoi(hp)
			if err != nil || n < 1 || n > 2 {
				return nil, fmt.Errorf("invalid half parts %q for %s in row %d", hp, name, i+1)
			}
			entry.HalfParts = n
		}
		staff = append(staff, entry)
	}

	return staff, nil
}

// parseDesiderata converts the desiderata tab into entries keyed by staff name
func parseDesiderata(raw [][]interface{}) (map[string][]rosterfile.DesiderataEntry, error) {
	s, err := newSheet(raw, desiderataFields)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]rosterfile.DesiderataEntry)
	for i := 1; i < len(raw); i++ {
		row := raw[i]
		name := s.get("Name", row)
		if name == "" {
			continue
		}
		start := s.get("Start", row)
		if start == "" {
			return nil, fmt.Errorf("missing start date for %s in row %d", name, i+1)
		}

		priority := strings.ToLower(s.get("Priority", row))
		if priority == "" {
			priority = "primary"
		}

		out[name] = append(out[name], rosterfile.DesiderataEntry{
			Start:    start,
			End:      s.get("End", row),
			Period:   strings.ToLower(s.get("Period", row)),
			Priority: priority,
		})
	}

	return out, nil
}
