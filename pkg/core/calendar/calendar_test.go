package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendar_FixedAndRecurringHolidays(t *testing.T) {
	cal, err := New(
		[]time.Time{day(2025, 7, 14)},
		[]string{"FREQ=YEARLY;BYMONTH=5;BYMONTHDAY=1", "FREQ=YEARLY;BYEASTER=1"},
	)
	require.NoError(t, err)

	assert.True(t, cal.IsHoliday(day(2025, 7, 14)))
	assert.True(t, cal.IsHoliday(day(2025, 5, 1)))
	assert.True(t, cal.IsHoliday(day(2026, 5, 1)))
	// Easter Monday 2025 is April 21st
	assert.True(t, cal.IsHoliday(day(2025, 4, 21)))
	assert.False(t, cal.IsHoliday(day(2025, 4, 22)))
}

func TestCalendar_DayType(t *testing.T) {
	cal, err := New([]time.Time{day(2025, 5, 8)}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.DayTypeWeekday, cal.DayType(day(2025, 5, 7)))
	assert.Equal(t, model.DayTypeSundayHoliday, cal.DayType(day(2025, 5, 8)))
	assert.Equal(t, model.DayTypeSaturday, cal.DayType(day(2025, 5, 10)))
	assert.Equal(t, model.DayTypeSundayHoliday, cal.DayType(day(2025, 5, 11)))
}

func TestCalendar_IsBridge(t *testing.T) {
	// Thursday 2025-05-29 (Ascension) makes Friday 30th a bridge
	cal, err := New([]time.Time{day(2025, 5, 29), day(2025, 11, 11)}, nil)
	require.NoError(t, err)

	assert.True(t, cal.IsBridge(day(2025, 5, 30)))
	assert.False(t, cal.IsBridge(day(2025, 5, 28)))
	// Tuesday 2025-11-11 makes Monday 10th a bridge
	assert.True(t, cal.IsBridge(day(2025, 11, 10)))
	assert.False(t, cal.IsBridge(day(2025, 11, 11)), "a holiday is not a bridge")
}

func TestCalendar_InvalidRule(t *testing.T) {
	_, err := New(nil, []string{"NOT_A_RULE"})
	assert.Error(t, err)
}

func TestCalendar_HolidaysBetween(t *testing.T) {
	cal, err := New(nil, []string{"FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25"})
	require.NoError(t, err)

	got := cal.HolidaysBetween(day(2024, 12, 1), day(2026, 1, 1))
	assert.Equal(t, []time.Time{day(2024, 12, 25), day(2025, 12, 25)}, got)
}

func TestCalendar_DrivesPlanningBuilder(t *testing.T) {
	cal, err := New([]time.Time{day(2025, 5, 29)}, nil)
	require.NoError(t, err)

	p, err := model.BuildPlanning(day(2025, 5, 28), day(2025, 5, 30), model.StandardCatalog(),
		[]model.SlotTemplate{{PostType: "ML", Site: "S"}}, cal, nil)
	require.NoError(t, err)

	assert.True(t, p.Days[0].IsWorkingWeekday())
	assert.True(t, p.Days[1].IsHolidayOrBridge, "holiday")
	assert.True(t, p.Days[2].IsHolidayOrBridge, "bridge")
}
