package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPlanning_PicksMostRecentlyCreated(t *testing.T) {
	plannings := []Planning{
		{ID: "p-1", Start: "2025-03-03", CreatedAt: "2025-02-01T10:00:00Z"},
		{ID: "p-2", Start: "2025-02-03", CreatedAt: "2025-02-20T09:00:00Z"},
		{ID: "p-3", Start: "2025-04-07", CreatedAt: "2025-02-10T08:00:00Z"},
	}

	latest, ok := LatestPlanning(plannings)
	require.True(t, ok)
	assert.Equal(t, "p-2", latest.ID)
}

func TestLatestPlanning_TieBrokenByStart(t *testing.T) {
	plannings := []Planning{
		{ID: "p-1", Start: "2025-03-03", CreatedAt: "2025-02-01T10:00:00Z"},
		{ID: "p-2", Start: "2025-03-10", CreatedAt: "2025-02-01T10:00:00Z"},
	}

	latest, ok := LatestPlanning(plannings)
	require.True(t, ok)
	assert.Equal(t, "p-2", latest.ID)
}

func TestLatestPlanning_Empty(t *testing.T) {
	_, ok := LatestPlanning(nil)
	assert.False(t, ok)
}
