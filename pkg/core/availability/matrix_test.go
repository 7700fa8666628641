package availability

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func planningOver(from, to int) *model.Planning {
	p, err := model.BuildPlanning(day(from), day(to), model.StandardCatalog(),
		[]model.SlotTemplate{{PostType: "ML", Site: "S"}}, nil, nil)
	if err != nil {
		panic(err)
	}
	return p
}

func off(d int, period model.Period, prio model.Priority) model.Desiderata {
	return model.Desiderata{Start: day(d), End: day(d), Period: period, Priority: prio}
}

func TestMatrix_GetPeriodAvailability(t *testing.T) {
	staff := []*model.Person{
		model.NewDoctor("A", 2, off(3, model.PeriodMorning, model.PriorityPrimary)),
		model.NewDoctor("B", 2, off(3, model.PeriodMorning, model.PrioritySecondary)),
		model.NewAuxiliary("C"),
	}
	m := NewMatrix(staff, planningOver(3, 5), DefaultThresholds())

	assert.False(t, m.GetPeriodAvailability("A", day(3), model.PeriodMorning))
	assert.True(t, m.GetPeriodAvailability("A", day(3), model.PeriodAfternoon))
	assert.False(t, m.GetPeriodAvailability("B", day(3), model.PeriodMorning))
	assert.False(t, m.GetPeriodAvailability("nobody", day(3), model.PeriodMorning))

	assert.Equal(t, []string{"C"}, m.GetAvailablePersonnel(day(3), model.PeriodMorning))
	assert.Equal(t, []string{"A", "B", "C"}, m.GetAvailablePersonnel(day(4), model.PeriodMorning))
	assert.InDelta(t, 1.0/3.0, m.AvailabilityRatio(day(3), model.PeriodMorning), 1e-9)
}

func TestMatrix_IsBlockedRelaxesOnlySecondary(t *testing.T) {
	staff := []*model.Person{
		model.NewDoctor("A", 2, off(3, model.PeriodEvening, model.PriorityPrimary)),
		model.NewDoctor("B", 2, off(3, model.PeriodEvening, model.PrioritySecondary)),
	}
	m := NewMatrix(staff, planningOver(3, 3), DefaultThresholds())

	assert.True(t, m.IsBlocked("A", day(3), model.PeriodEvening, true))
	assert.True(t, m.IsBlocked("A", day(3), model.PeriodEvening, false))
	assert.True(t, m.IsBlocked("B", day(3), model.PeriodEvening, true))
	assert.False(t, m.IsBlocked("B", day(3), model.PeriodEvening, false))
}

func TestMatrix_OutsidePlanningReadsDesiderata(t *testing.T) {
	staff := []*model.Person{model.NewDoctor("A", 2, off(20, model.PeriodMorning, model.PriorityPrimary))}
	m := NewMatrix(staff, planningOver(3, 3), DefaultThresholds())

	assert.False(t, m.GetPeriodAvailability("A", day(20), model.PeriodMorning))
	assert.True(t, m.GetPeriodAvailability("A", day(21), model.PeriodMorning))
}

func TestMatrix_IdentifyCriticalPeriodsOrdering(t *testing.T) {
	// 10 staff: day 3 morning 5 off, day 4 evening 4 off, day 5 afternoon 2 off
	var staff []*model.Person
	for i := range 10 {
		var ds []model.Desiderata
		if i < 5 {
			ds = append(ds, off(3, model.PeriodMorning, model.PriorityPrimary))
		}
		if i < 4 {
			ds = append(ds, off(4, model.PeriodEvening, model.PrioritySecondary))
		}
		if i < 2 {
			ds = append(ds, off(5, model.PeriodAfternoon, model.PriorityPrimary))
		}
		staff = append(staff, model.NewDoctor(fmt.Sprintf("D%d", i), 2, ds...))
	}
	m := NewMatrix(staff, planningOver(3, 5), DefaultThresholds())

	got := m.IdentifyCriticalPeriods(nil)
	require.Len(t, got, 2, "20 percent unavailability is below the threshold")
	assert.Equal(t, day(3), got[0].Date)
	assert.Equal(t, model.PeriodMorning, got[0].Period)
	assert.InDelta(t, 0.5, got[0].Unavailability, 1e-9)
	assert.Equal(t, 5, got[0].Available)
	assert.Equal(t, day(4), got[1].Date)

	assert.True(t, m.IsCritical(day(4), model.PeriodEvening))
	assert.False(t, m.IsCritical(day(5), model.PeriodAfternoon))
}

func TestMatrix_IdentifyCriticalPeriodsShufflesWithinTolerance(t *testing.T) {
	// Every morning has the same unavailability so all entries share one group
	var staff []*model.Person
	for i := range 4 {
		var ds []model.Desiderata
		if i < 2 {
			for d := 3; d <= 14; d++ {
				ds = append(ds, off(d, model.PeriodMorning, model.PriorityPrimary))
			}
		}
		staff = append(staff, model.NewDoctor(fmt.Sprintf("D%d", i), 2, ds...))
	}
	m := NewMatrix(staff, planningOver(3, 14), DefaultThresholds())

	first := m.IdentifyCriticalPeriods(rand.New(rand.NewPCG(1, 2)))
	again := m.IdentifyCriticalPeriods(rand.New(rand.NewPCG(1, 2)))
	other := m.IdentifyCriticalPeriods(rand.New(rand.NewPCG(99, 7)))

	require.Len(t, first, 12)
	assert.Equal(t, first, again, "same seed gives the same order")
	assert.NotEqual(t, first, other, "different seeds reorder a tied group")
	assert.ElementsMatch(t, first, other)
}
