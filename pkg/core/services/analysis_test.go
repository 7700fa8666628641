package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

func TestCriticalPeriods_FindsBlockedMorning(t *testing.T) {
	result, err := CriticalPeriods(context.Background(), nil, &config.Config{}, zap.NewNop(), loadDoc(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Staff)
	require.Len(t, result.Periods, 1)
	cp := result.Periods[0]
	assert.Equal(t, mustDate(t, "2025-03-04"), cp.Date)
	assert.Equal(t, model.PeriodMorning, cp.Period)
	assert.Equal(t, 0.5, cp.Unavailability)
	assert.Equal(t, 1, cp.Available)
}

func TestCriticalPeriods_ThresholdFromConfig(t *testing.T) {
	cfg := &config.Config{Engine: config.EngineConfig{CriticalUnavailability: 0.6}}

	result, err := CriticalPeriods(context.Background(), nil, cfg, zap.NewNop(), loadDoc(t, ""), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Periods)
}

func TestAnalyzeCombinations_CountsOpenPairs(t *testing.T) {
	report, err := AnalyzeCombinations(context.Background(), nil, &config.Config{}, zap.NewNop(), loadDoc(t, ""))
	require.NoError(t, err)

	assert.Len(t, report.Entries, len(model.StandardCatalog().Combinations()))
	mlca, ok := report.Entry("MLCA")
	require.True(t, ok)
	assert.Equal(t, 5, mlca.Opportunities)
	assert.Equal(t, 2, mlca.EligibleDoctors)

	mlcs, ok := report.Entry("MLCS")
	require.True(t, ok)
	assert.Zero(t, mlcs.Opportunities, "no CS slots in the template")
}

func TestAnalyzeCombinations_HeldSlotsReduceOpportunities(t *testing.T) {
	doc := loadDoc(t, `
assignments:
  - person: Dr A
    date: 2025-03-03
    post: ML
`)

	report, err := AnalyzeCombinations(context.Background(), nil, &config.Config{}, zap.NewNop(), doc)
	require.NoError(t, err)

	mlca, ok := report.Entry("MLCA")
	require.True(t, ok)
	assert.Equal(t, 4, mlca.Opportunities)
}
