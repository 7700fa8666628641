package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/db"
)

func storeWithPlannings() *mockStore {
	return &mockStore{
		plannings: []db.Planning{
			{ID: "p-1", Start: "2025-03-03", CreatedAt: "2025-02-20T10:00:00Z"},
			{ID: "p-2", Start: "2025-03-10", CreatedAt: "2025-02-27T10:00:00Z"},
		},
		assignments: []db.Assignment{
			{ID: "a-1", PlanningID: "p-1", PostType: "ML"},
			{ID: "a-2", PlanningID: "p-2", PostType: "ML"},
			{ID: "a-3", PlanningID: "p-2", PostType: "NL", Preserved: true},
			{ID: "a-4", PlanningID: "p-2", PostType: "CA"},
		},
	}
}

func TestResetPlanning_LatestByDefault(t *testing.T) {
	store := storeWithPlannings()

	result, err := ResetPlanning(context.Background(), store, zap.NewNop(), "")
	require.NoError(t, err)

	assert.Equal(t, "p-2", result.Planning.ID)
	assert.Equal(t, 2, result.Cleared)
	assert.True(t, store.keepPreserved)
	require.Len(t, store.assignments, 2)
	assert.Equal(t, "a-1", store.assignments[0].ID)
	assert.Equal(t, "a-3", store.assignments[1].ID)
}

func TestResetPlanning_ByID(t *testing.T) {
	store := storeWithPlannings()

	result, err := ResetPlanning(context.Background(), store, zap.NewNop(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cleared)
	assert.Equal(t, []string{"p-1"}, store.deleted)
}

func TestResetPlanning_Errors(t *testing.T) {
	_, err := ResetPlanning(context.Background(), storeWithPlannings(), zap.NewNop(), "p-9")
	assert.ErrorContains(t, err, "planning p-9 not found")

	_, err = ResetPlanning(context.Background(), &mockStore{}, zap.NewNop(), "")
	assert.ErrorContains(t, err, "no plannings found")

	_, err = ResetPlanning(context.Background(), &mockStore{getPlanningsErr: errors.New("db down")}, zap.NewNop(), "")
	assert.ErrorContains(t, err, "failed to fetch plannings: db down")

	store := storeWithPlannings()
	store.deleteErr = errors.New("locked")
	_, err = ResetPlanning(context.Background(), store, zap.NewNop(), "p-1")
	assert.ErrorContains(t, err, "failed to delete assignments: locked")
}

func TestListPlannings_MostRecentFirst(t *testing.T) {
	plannings, err := ListPlannings(context.Background(), storeWithPlannings())
	require.NoError(t, err)

	require.Len(t, plannings, 2)
	assert.Equal(t, "p-2", plannings[0].ID)
	assert.Equal(t, "p-1", plannings[1].ID)
}
