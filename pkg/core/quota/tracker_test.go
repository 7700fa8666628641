package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
var saturday = time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

func newTracker(t *testing.T) (*Tracker, *model.Person, *model.Person) {
	t.Helper()
	doctor := model.NewDoctor("Dr A", 2)
	aux := model.NewAuxiliary("Cat B")
	pa := &model.PreAnalysis{
		Doctors: map[string]model.DoctorTargets{
			"Dr A": {
				Posts: map[model.PostType]model.Interval{
					"ML": {Min: 1, Max: 2},
					"CA": {Min: 1, Max: 3},
					"MM": {Min: 0, Max: 2},
					"NL": {Min: 2, Max: 3},
				},
				Groups: map[model.Group]model.Interval{
					"VmS": {Min: 1, Max: 2},
					"CaS": {Min: 0, Max: 3},
				},
			},
		},
		Auxiliaries: map[string]model.AuxiliaryTargets{
			"Cat B": {model.DayTypeWeekday: {"CM": 2, "CA": 1}},
		},
	}
	staff := []*model.Person{doctor, aux}
	return NewTracker(staff, pa, model.StandardCatalog(), nil, zap.NewNop()), doctor, aux
}

func TestTracker_CanAssignPost(t *testing.T) {
	tr, doctor, aux := newTracker(t)

	assert.True(t, tr.CanAssignPost(doctor, "ML"))
	tr.UpdateAssignment(doctor, "ML", monday)
	tr.UpdateAssignment(doctor, "ML", monday)
	assert.False(t, tr.CanAssignPost(doctor, "ML"), "max reached")

	assert.False(t, tr.CanAssignPost(doctor, "HS"), "missing targets fail closed")
	assert.False(t, tr.CanAssignPost(aux, "ML"), "auxiliaries cannot hold doctor-only posts")

	assert.True(t, tr.CanAssignPost(aux, "CA"))
	tr.UpdateAssignment(aux, "CA", monday)
	assert.False(t, tr.CanAssignPost(aux, "CA"), "flat quota reached")
}

func TestTracker_CanAssignPostWithMargin(t *testing.T) {
	tr, doctor, aux := newTracker(t)

	for range 3 {
		tr.UpdateAssignment(doctor, "CA", monday)
	}
	assert.False(t, tr.CanAssignPost(doctor, "CA"))
	// ceil(3 * 1.2) = 4
	assert.True(t, tr.CanAssignPostWithMargin(doctor, "CA", 0.2))

	tr.UpdateAssignment(aux, "CA", monday)
	assert.False(t, tr.CanAssignPostWithMargin(aux, "CA", 0.2), "auxiliary quotas never widen")
}

func TestTracker_CombinationIncrementsCounters(t *testing.T) {
	tr, doctor, _ := newTracker(t)

	require.True(t, tr.CanAssignCombination(doctor, "MLCA", monday))
	require.NoError(t, tr.UpdateCombination(doctor, "MLCA", monday))

	c := tr.Counters(doctor.Name)
	assert.Equal(t, 1, c.Post("ML"))
	assert.Equal(t, 1, c.Post("CA"))
	assert.Equal(t, 1, c.Group("VmS"))
	assert.Equal(t, 1, c.Group("CaS"))
	assert.Equal(t, 1, c.Combination("MLCA"))
}

func TestTracker_CombinationRespectsGroupMax(t *testing.T) {
	tr, doctor, _ := newTracker(t)

	tr.UpdateAssignment(doctor, "MM", monday)
	tr.UpdateAssignment(doctor, "MM", monday)
	// VmS is now at its max of 2 even though ML has headroom
	assert.True(t, tr.CanAssignPost(doctor, "ML"))
	assert.False(t, tr.CanAssignCombination(doctor, "MLCA", monday))

	// Weekend dates use the weekend groups, which carry no interval here
	assert.True(t, tr.CanAssignCombination(doctor, "MLCA", saturday))
}

func TestTracker_CombinationSameGroupCountsTwice(t *testing.T) {
	catalog, err := model.StandardCatalog().WithCustomPosts([]model.CustomPost{{
		Name:           "XA",
		Start:          model.Clock(14, 0),
		End:            model.Clock(18, 0),
		Audience:       model.AudienceDoctors,
		StatisticGroup: "VmS",
		Combinations:   []model.CustomCombination{{Partner: "ML", Tier: model.TierLow}},
	}})
	require.NoError(t, err)

	doctor := model.NewDoctor("Dr A", 2)
	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"Dr A": {
			Posts:  map[model.PostType]model.Interval{"ML": {Max: 5}, "XA": {Max: 5}},
			Groups: map[model.Group]model.Interval{"VmS": {Max: 3}},
		},
	}}
	tr := NewTracker([]*model.Person{doctor}, pa, catalog, nil, zap.NewNop())

	// ML and XA both land in VmS on weekdays
	tr.UpdateAssignment(doctor, "ML", monday)
	assert.True(t, tr.CanAssignCombination(doctor, "MLXA", monday), "1/3 leaves room for two halves")

	tr.UpdateAssignment(doctor, "ML", monday)
	assert.True(t, tr.CanAssignPost(doctor, "ML"))
	assert.True(t, tr.CanAssignPost(doctor, "XA"))
	assert.False(t, tr.CanAssignCombination(doctor, "MLXA", monday), "2/3 leaves room for one half only")

	// On Saturday ML moves to VmD, so only XA lands in VmS
	assert.True(t, tr.CanAssignCombination(doctor, "MLXA", saturday))
	require.NoError(t, tr.UpdateCombination(doctor, "MLXA", saturday))
	assert.Equal(t, 3, tr.Counters(doctor.Name).Group("VmS"))
	assert.Equal(t, 1, tr.Counters(doctor.Name).Group("VmD"))
}

func TestTracker_InvalidCombinationFailsClosed(t *testing.T) {
	tr, doctor, _ := newTracker(t)

	assert.False(t, tr.CanAssignCombination(doctor, "XXYY", monday))
	err := tr.UpdateCombination(doctor, "XXYY", monday)
	assert.ErrorIs(t, err, model.ErrInvalidCombination)
	assert.Equal(t, 0, tr.Counters(doctor.Name).TotalPosts())
}

func TestTracker_AuxiliaryCombinationSkipsGroups(t *testing.T) {
	tr, _, aux := newTracker(t)

	assert.True(t, tr.CanAssignCombination(aux, "CMCA", monday))
	assert.False(t, tr.CanAssignCombination(aux, "MLCA", monday))
}

func TestTracker_GetRemainingQuotas(t *testing.T) {
	tr, doctor, aux := newTracker(t)

	tr.UpdateAssignment(doctor, "ML", monday)
	tr.UpdateAssignment(doctor, "MM", monday)
	tr.UpdateAssignment(doctor, "MM", monday)

	rem := tr.GetRemainingQuotas(doctor)
	assert.Equal(t, 1, rem.Posts["ML"])
	assert.Equal(t, 0, rem.Posts["MM"])
	assert.Equal(t, 0, rem.Groups["VmS"], "clamped at zero even when over")
	assert.Equal(t, 3, rem.Groups["CaS"])

	auxRem := tr.GetRemainingQuotas(aux)
	assert.Equal(t, map[model.PostType]int{"CM": 2, "CA": 1}, auxRem.Posts)
	assert.Empty(t, auxRem.Groups)
}

func TestTracker_NLAbsoluteMax(t *testing.T) {
	tr, doctor, aux := newTracker(t)

	assert.Equal(t, 5, tr.NLAbsoluteMax(doctor, 1.5))
	assert.Equal(t, 3, tr.NLAbsoluteMax(doctor, 1.0))
	assert.Equal(t, 0, tr.NLAbsoluteMax(aux, 1.5))

	explicit := 4
	tr.pa.Doctors["Dr A"] = model.DoctorTargets{
		Posts:         map[model.PostType]model.Interval{"NL": {Min: 0, Max: 2}},
		NLAbsoluteMax: &explicit,
	}
	assert.Equal(t, 4, tr.NLAbsoluteMax(doctor, 1.5))

	tr.pa.Doctors["Dr A"] = model.DoctorTargets{Posts: map[model.PostType]model.Interval{"NL": {Min: 0, Max: 0}}}
	assert.Equal(t, 0, tr.NLAbsoluteMax(doctor, 1.5))
}

func TestTracker_Deficits(t *testing.T) {
	tr, doctor, aux := newTracker(t)

	assert.Equal(t, 2, tr.PostDeficit(doctor, "NL"))
	assert.Equal(t, map[model.Group]int{"VmS": 1}, tr.GroupDeficits(doctor))
	assert.True(t, tr.UnderMinimum(doctor))
	assert.False(t, tr.UnderMinimum(aux))

	tr.UpdateAssignment(doctor, "ML", monday)
	tr.UpdateAssignment(doctor, "CA", monday)
	tr.UpdateAssignment(doctor, "NL", monday)
	tr.UpdateAssignment(doctor, "NL", monday)
	assert.False(t, tr.UnderMinimum(doctor))
	assert.InDelta(t, 4.0/10.0, tr.WorkloadRatio(doctor), 1e-9)
}
