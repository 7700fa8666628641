// Package rosterfile loads the roster input document: planning range, slot template, staff,
// desiderata, pre-analysis targets and pre-attributions.
package rosterfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Document is the roster input document
type Document struct {
	Name            string                         `yaml:"name" json:"name"`
	Start           string                         `yaml:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End             string                         `yaml:"end" json:"end" validate:"required,datetime=2006-01-02"`
	Seed            *uint64                        `yaml:"seed,omitempty" json:"seed,omitempty"`
	Template        []SlotEntry                    `yaml:"template" json:"template" validate:"required,min=1,dive"`
	Staff           []StaffEntry                   `yaml:"staff,omitempty" json:"staff,omitempty" validate:"dive"`
	Doctors         map[string]DoctorEntry         `yaml:"doctors,omitempty" json:"doctors,omitempty" validate:"dive"`
	Auxiliaries     map[string]map[string]QuotaRow `yaml:"auxiliaries,omitempty" json:"auxiliaries,omitempty"`
	PreAttributions []PreAttributionEntry          `yaml:"preAttributions,omitempty" json:"preAttributions,omitempty" validate:"dive"`
	Assignments     []AssignmentEntry              `yaml:"assignments,omitempty" json:"assignments,omitempty" validate:"dive"`
}

// QuotaRow maps a post type to an auxiliary quota
type QuotaRow map[string]int

// SlotEntry is one row of the slot template
type SlotEntry struct {
	Post     string   `yaml:"post" json:"post" validate:"required"`
	Site     string   `yaml:"site" json:"site" validate:"required"`
	Count    int      `yaml:"count,omitempty" json:"count,omitempty" validate:"min=0"`
	DayTypes []string `yaml:"dayTypes,omitempty" json:"dayTypes,omitempty" validate:"dive,oneof=weekday saturday sunday_holiday"`
}

// StaffEntry is a person of the staff pool
type StaffEntry struct {
	Name       string            `yaml:"name" json:"name" validate:"required"`
	Kind       string            `yaml:"kind" json:"kind" validate:"required,oneof=doctor auxiliary"`
	HalfParts  int               `yaml:"halfParts,omitempty" json:"halfParts,omitempty" validate:"min=0,max=2"`
	Desiderata []DesiderataEntry `yaml:"desiderata,omitempty" json:"desiderata,omitempty" validate:"dive"`
}

// DesiderataEntry is a period a person asked not to work
type DesiderataEntry struct {
	Start    string `yaml:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End      string `yaml:"end,omitempty" json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Period   string `yaml:"period" json:"period" validate:"required,oneof=morning afternoon evening"`
	Priority string `yaml:"priority" json:"priority" validate:"required,oneof=primary secondary"`
}

// DoctorEntry holds a doctor's pre-analysis intervals
type DoctorEntry struct {
	Posts         map[string]model.Interval `yaml:"posts" json:"posts" validate:"dive"`
	Groups        map[string]model.Interval `yaml:"groups,omitempty" json:"groups,omitempty" validate:"dive"`
	NLAbsoluteMax *int                      `yaml:"nlAbsoluteMax,omitempty" json:"nlAbsoluteMax,omitempty" validate:"omitempty,min=0"`
}

// PreAttributionEntry fixes a person onto a post before distribution
type PreAttributionEntry struct {
	Person string `yaml:"person" json:"person" validate:"required"`
	Date   string `yaml:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Period string `yaml:"period" json:"period" validate:"required,oneof=morning afternoon evening"`
	Post   string `yaml:"post" json:"post" validate:"required"`
}

// AssignmentEntry is a slot already held when distribution starts, e.g. a Friday long night
// set by the weekend planning
type AssignmentEntry struct {
	Person string `yaml:"person" json:"person" validate:"required"`
	Date   string `yaml:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Post   string `yaml:"post" json:"post" validate:"required"`
	Site   string `yaml:"site,omitempty" json:"site,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads a roster document from a .yaml, .yml or .json file
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML roster document
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseJSON decodes and validates a JSON roster document
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks field constraints, then the rules that span fields
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("roster validation failed: %w", err)
	}

	start, _ := model.ParseDate(doc.Start)
	end, _ := model.ParseDate(doc.End)
	if end.Before(start) {
		return fmt.Errorf("roster end %s is before start %s", doc.End, doc.Start)
	}

	seen := make(map[string]bool, len(doc.Staff))
	for _, s := range doc.Staff {
		if seen[s.Name] {
			return fmt.Errorf("duplicate staff name %q", s.Name)
		}
		seen[s.Name] = true
	}

	for name, d := range doc.Doctors {
		for post, iv := range d.Posts {
			if iv.Max < iv.Min {
				return fmt.Errorf("doctor %s: %s max %d is below min %d", name, post, iv.Max, iv.Min)
			}
		}
		for group, iv := range d.Groups {
			if iv.Max < iv.Min {
				return fmt.Errorf("doctor %s: group %s max %d is below min %d", name, group, iv.Max, iv.Min)
			}
		}
	}

	for name, byDayType := range doc.Auxiliaries {
		for dt, row := range byDayType {
			if _, err := model.ParseDayType(dt); err != nil {
				return fmt.Errorf("auxiliary %s: %w", name, err)
			}
			for post, n := range row {
				if n < 0 {
					return fmt.Errorf("auxiliary %s: negative %s quota", name, post)
				}
			}
		}
	}

	return nil
}
