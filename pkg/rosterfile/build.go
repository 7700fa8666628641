package rosterfile

import (
	"fmt"
	"slices"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Roster is the domain view of a document
type Roster struct {
	Name            string
	Planning        *model.Planning
	Staff           []*model.Person
	PreAttributions []model.PreAttribution

	// Seed is set when the document fixes one
	Seed *uint64
}

// People converts the staff entries
func (d *Document) People() ([]*model.Person, error) {
	staff := make([]*model.Person, 0, len(d.Staff))
	for _, s := range d.Staff {
		kind, err := model.ParseKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("staff %s: %w", s.Name, err)
		}

		var desiderata []model.Desiderata
		for i, e := range s.Desiderata {
			des, err := e.toModel()
			if err != nil {
				return nil, fmt.Errorf("staff %s desiderata %d: %w", s.Name, i, err)
			}
			desiderata = append(desiderata, des)
		}

		if kind == model.KindAuxiliary {
			staff = append(staff, model.NewAuxiliary(s.Name, desiderata...))
			continue
		}
		halfParts := s.HalfParts
		if halfParts == 0 {
			halfParts = 2
		}
		staff = append(staff, model.NewDoctor(s.Name, halfParts, desiderata...))
	}
	return staff, nil
}

func (e DesiderataEntry) toModel() (model.Desiderata, error) {
	start, err := model.ParseDate(e.Start)
	if err != nil {
		return model.Desiderata{}, err
	}
	end := start
	if e.End != "" {
		if end, err = model.ParseDate(e.End); err != nil {
			return model.Desiderata{}, err
		}
	}
	if end.Before(start) {
		return model.Desiderata{}, fmt.Errorf("end %s is before start %s", e.End, e.Start)
	}
	period, err := model.ParsePeriod(e.Period)
	if err != nil {
		return model.Desiderata{}, err
	}
	priority, err := model.ParsePriority(e.Priority)
	if err != nil {
		return model.Desiderata{}, err
	}
	return model.Desiderata{Start: start, End: end, Period: period, Priority: priority}, nil
}

// PreAnalysis converts the doctor intervals and auxiliary quotas
func (d *Document) PreAnalysis() (*model.PreAnalysis, error) {
	pa := &model.PreAnalysis{
		Doctors:     make(map[string]model.DoctorTargets, len(d.Doctors)),
		Auxiliaries: make(map[string]model.AuxiliaryTargets, len(d.Auxiliaries)),
	}

	for name, entry := range d.Doctors {
		targets := model.DoctorTargets{
			Posts:         make(map[model.PostType]model.Interval, len(entry.Posts)),
			Groups:        make(map[model.Group]model.Interval, len(entry.Groups)),
			NLAbsoluteMax: entry.NLAbsoluteMax,
		}
		for post, iv := range entry.Posts {
			targets.Posts[model.PostType(post)] = iv
		}
		for group, iv := range entry.Groups {
			targets.Groups[model.Group(group)] = iv
		}
		pa.Doctors[name] = targets
	}

	for name, byDayType := range d.Auxiliaries {
		targets := make(model.AuxiliaryTargets, len(byDayType))
		for dt, row := range byDayType {
			dayType, err := model.ParseDayType(dt)
			if err != nil {
				return nil, fmt.Errorf("auxiliary %s: %w", name, err)
			}
			quotas := make(map[model.PostType]int, len(row))
			for post, n := range row {
				quotas[model.PostType(post)] = n
			}
			targets[dayType] = quotas
		}
		pa.Auxiliaries[name] = targets
	}

	return pa, nil
}

// SlotTemplates converts the slot template rows
func (d *Document) SlotTemplates() ([]model.SlotTemplate, error) {
	template := make([]model.SlotTemplate, 0, len(d.Template))
	for _, row := range d.Template {
		entry := model.SlotTemplate{PostType: model.PostType(row.Post), Site: row.Site, Count: row.Count}
		for _, s := range row.DayTypes {
			dt, err := model.ParseDayType(s)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", row.Post, err)
			}
			entry.DayTypes = append(entry.DayTypes, dt)
		}
		template = append(template, entry)
	}
	return template, nil
}

// Build lays out the planning, applies the existing assignments and converts the staff and
// pre-attributions. A nil classifier uses plain weekday/weekend classification.
func (d *Document) Build(catalog *model.Catalog, classifier model.DayClassifier) (*Roster, error) {
	start, err := model.ParseDate(d.Start)
	if err != nil {
		return nil, err
	}
	end, err := model.ParseDate(d.End)
	if err != nil {
		return nil, err
	}

	template, err := d.SlotTemplates()
	if err != nil {
		return nil, err
	}
	pa, err := d.PreAnalysis()
	if err != nil {
		return nil, err
	}

	planning, err := model.BuildPlanning(start, end, catalog, template, classifier, pa)
	if err != nil {
		return nil, fmt.Errorf("failed to build planning: %w", err)
	}

	for _, a := range d.Assignments {
		if err := applyAssignment(planning, a); err != nil {
			return nil, err
		}
	}

	staff, err := d.People()
	if err != nil {
		return nil, err
	}

	pre := make([]model.PreAttribution, 0, len(d.PreAttributions))
	for _, e := range d.PreAttributions {
		date, err := model.ParseDate(e.Date)
		if err != nil {
			return nil, err
		}
		period, err := model.ParsePeriod(e.Period)
		if err != nil {
			return nil, err
		}
		pre = append(pre, model.PreAttribution{Person: e.Person, Date: date, Period: period, PostType: model.PostType(e.Post)})
	}

	return &Roster{
		Name:            d.Name,
		Planning:        planning,
		Staff:           staff,
		PreAttributions: pre,
		Seed:            d.Seed,
	}, nil
}

// applyAssignment places an existing assignment on the first open matching slot
func applyAssignment(planning *model.Planning, a AssignmentEntry) error {
	date, err := model.ParseDate(a.Date)
	if err != nil {
		return err
	}
	day, ok := planning.Day(date)
	if !ok {
		return fmt.Errorf("assignment of %s on %s falls outside the planning", a.Person, a.Date)
	}
	idx := slices.IndexFunc(day.Slots, func(s *model.TimeSlot) bool {
		return s.IsOpen() && s.PostType == model.PostType(a.Post) && (a.Site == "" || s.Site == a.Site)
	})
	if idx < 0 {
		return fmt.Errorf("no open %s slot on %s for %s", a.Post, a.Date, a.Person)
	}
	s := day.Slots[idx]
	if err := planning.Assign(s, a.Person); err != nil {
		return err
	}
	s.Carried = true
	return nil
}
