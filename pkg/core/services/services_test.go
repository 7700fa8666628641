package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

const weekRoster = `
name: Week 10
start: 2025-03-03
end: 2025-03-07
seed: 42
template:
  - post: ML
    site: North
    dayTypes: [weekday]
  - post: CA
    site: North
    dayTypes: [weekday]
  - post: NL
    site: North
staff:
  - name: Dr A
    kind: doctor
    desiderata:
      - start: 2025-03-04
        period: morning
        priority: primary
  - name: Dr B
    kind: doctor
doctors:
  Dr A:
    posts:
      ML: {min: 0, max: 5}
      CA: {min: 0, max: 5}
      NL: {min: 0, max: 3}
  Dr B:
    posts:
      ML: {min: 0, max: 5}
      CA: {min: 0, max: 5}
      NL: {min: 0, max: 3}
`

func loadDoc(t *testing.T, extra string) *rosterfile.Document {
	t.Helper()
	doc, err := rosterfile.ParseYAML([]byte(weekRoster + extra))
	require.NoError(t, err)
	return doc
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

// mockStore implements the planning and assignment stores in memory
type mockStore struct {
	plannings   []db.Planning
	assignments []db.Assignment

	insertPlanningErr    error
	insertAssignmentsErr error
	getPlanningsErr      error
	deleteErr            error

	deleted       []string
	keepPreserved bool
}

func (m *mockStore) GetPlannings(ctx context.Context) ([]db.Planning, error) {
	if m.getPlanningsErr != nil {
		return nil, m.getPlanningsErr
	}
	return m.plannings, nil
}

func (m *mockStore) InsertPlanning(ctx context.Context, planning *db.Planning) error {
	if m.insertPlanningErr != nil {
		return m.insertPlanningErr
	}
	m.plannings = append(m.plannings, *planning)
	return nil
}

func (m *mockStore) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if m.insertAssignmentsErr != nil {
		return m.insertAssignmentsErr
	}
	m.assignments = append(m.assignments, assignments...)
	return nil
}

func (m *mockStore) DeleteAssignments(ctx context.Context, planningID string, keepPreserved bool) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deleted = append(m.deleted, planningID)
	m.keepPreserved = keepPreserved

	kept := m.assignments[:0]
	n := 0
	for _, a := range m.assignments {
		if a.PlanningID == planningID && !(keepPreserved && a.Preserved) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.assignments = kept
	return n, nil
}

// mockStaffSource implements StaffSource
type mockStaffSource struct {
	staff []rosterfile.StaffEntry
	err   error
	calls int
}

func (m *mockStaffSource) ListStaff(ctx context.Context, cfg config.SheetsConfig) ([]rosterfile.StaffEntry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.staff, nil
}

// mockMailer implements Mailer
type mockMailer struct {
	sent   []string
	failOn string
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == m.failOn {
		return fmt.Errorf("smtp refused")
	}
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	return nil
}
