package combinations

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/quota"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T, pa *model.PreAnalysis, staff []*model.Person) (*model.Planning, *quota.Tracker, *model.Catalog) {
	t.Helper()
	catalog := model.StandardCatalog()
	// Monday 3rd to Sunday 9th: five working weekdays
	planning, err := model.BuildPlanning(day(3), day(9), catalog, []model.SlotTemplate{
		{PostType: "ML", Site: "North"},
		{PostType: "CA", Site: "North", Count: 2},
	}, nil, pa)
	require.NoError(t, err)
	return planning, quota.NewTracker(staff, pa, catalog, nil, zap.NewNop()), catalog
}

func TestAnalyze_OpportunitiesAndDemand(t *testing.T) {
	a := model.NewDoctor("A", 2)
	b := model.NewDoctor("B", 1)
	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"A": {Posts: map[model.PostType]model.Interval{"ML": {Max: 4}, "CA": {Max: 2}}},
		"B": {Posts: map[model.PostType]model.Interval{"ML": {Max: 5}, "CA": {Max: 5}}},
	}}
	planning, tracker, catalog := setup(t, pa, []*model.Person{a, b})

	report := Analyze(planning, []*model.Person{a, b}, tracker, catalog)

	mlca, ok := report.Entry("MLCA")
	require.True(t, ok)
	assert.Equal(t, 5, mlca.Opportunities, "one ML slot per weekday limits the pairs")
	assert.Equal(t, 7, mlca.Demand)
	assert.Equal(t, 2, mlca.EligibleDoctors)
	assert.InDelta(t, 5.0/7.0, mlca.Ratio, 1e-9)
	assert.Equal(t, StatusInsufficient, mlca.Status)
	assert.Contains(t, report.Insufficient(), mlca)

	mmca, ok := report.Entry("MMCA")
	require.True(t, ok)
	assert.Equal(t, 0, mmca.Demand, "missing targets give no demand")
	assert.True(t, math.IsInf(mmca.Ratio, 1))
	assert.Equal(t, StatusOK, mmca.Status)
}

func TestAnalyze_GroupHeadroomCapsDemand(t *testing.T) {
	a := model.NewDoctor("A", 2)
	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"A": {
			Posts:  map[model.PostType]model.Interval{"HM": {Max: 5}, "HA": {Max: 5}, "ML": {Max: 3}, "CA": {Max: 3}},
			Groups: map[model.Group]model.Interval{"CaS": {Max: 3}},
		},
	}}
	planning, tracker, catalog := setup(t, pa, []*model.Person{a})

	report := Analyze(planning, []*model.Person{a}, tracker, catalog)

	// HMHA maps to CmS and CaS: CaS headroom 3 caps it
	hmha, _ := report.Entry("HMHA")
	assert.Equal(t, 3, hmha.Demand)

	require.NoError(t, tracker.UpdateCombination(a, "MLCA", day(3)))
	report = Analyze(planning, []*model.Person{a}, tracker, catalog)
	mlca, _ := report.Entry("MLCA")
	assert.Equal(t, 2, mlca.Demand)
}

func TestAnalyze_SameGroupHalvesShareHeadroom(t *testing.T) {
	catalog, err := model.StandardCatalog().WithCustomPosts([]model.CustomPost{{
		Name:           "XA",
		Start:          model.Clock(14, 0),
		End:            model.Clock(18, 0),
		Audience:       model.AudienceDoctors,
		StatisticGroup: "VmS",
		Combinations:   []model.CustomCombination{{Partner: "ML", Tier: model.TierLow}},
	}})
	require.NoError(t, err)

	a := model.NewDoctor("A", 2)
	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"A": {
			Posts:  map[model.PostType]model.Interval{"ML": {Max: 5}, "XA": {Max: 5}},
			Groups: map[model.Group]model.Interval{"VmS": {Max: 5}},
		},
	}}
	planning, err := model.BuildPlanning(day(3), day(9), catalog, []model.SlotTemplate{
		{PostType: "ML", Site: "North"},
		{PostType: "XA", Site: "North"},
	}, nil, pa)
	require.NoError(t, err)
	tracker := quota.NewTracker([]*model.Person{a}, pa, catalog, nil, zap.NewNop())

	// ML and XA both count towards VmS, so 5 of headroom holds two pairs
	report := Analyze(planning, []*model.Person{a}, tracker, catalog)
	mlxa, ok := report.Entry("MLXA")
	require.True(t, ok)
	assert.Equal(t, 2, mlxa.Demand)

	tracker.UpdateAssignment(a, "ML", day(3))
	tracker.UpdateAssignment(a, "ML", day(4))
	report = Analyze(planning, []*model.Person{a}, tracker, catalog)
	mlxa, _ = report.Entry("MLXA")
	assert.Equal(t, 1, mlxa.Demand, "3 left fits one pair")
}

func TestAnalyze_SortedByRatioThenCode(t *testing.T) {
	a := model.NewDoctor("A", 2)
	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"A": {Posts: map[model.PostType]model.Interval{"ML": {Max: 10}, "CA": {Max: 10}, "CS": {Max: 10}}},
	}}
	planning, tracker, catalog := setup(t, pa, []*model.Person{a})

	report := Analyze(planning, []*model.Person{a}, tracker, catalog)

	require.NotEmpty(t, report.Entries)
	// MLCS has no CS slots at all, MLCA has 5 of 10
	assert.Equal(t, "MLCS", report.Entries[0].Code)
	assert.Equal(t, "MLCA", report.Entries[1].Code)
	for i := 1; i < len(report.Entries); i++ {
		prev, cur := report.Entries[i-1], report.Entries[i]
		assert.True(t, prev.Ratio < cur.Ratio || (prev.Ratio == cur.Ratio && prev.Code < cur.Code))
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, statusOf(1))
	assert.Equal(t, StatusTight, statusOf(0.8))
	assert.Equal(t, StatusInsufficient, statusOf(0.79))
}
