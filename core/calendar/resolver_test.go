package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsched/core/model"
)

func ptr[T any](v T) *T { return &v }

// 2025-01-06 is a Monday.
var monday = model.NewDate(2025, time.January, 6)

func TestWorkingDaysFromMask(t *testing.T) {
	r, err := NewResolver(model.DefaultWorkingDays(), nil, []model.Cell{{ID: "c1"}})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.True(t, r.IsWorkingDay(monday.AddDays(i)), "weekday %d", i)
	}
	assert.False(t, r.IsWorkingDay(monday.AddDays(5)), "saturday")
	assert.False(t, r.IsWorkingDay(monday.AddDays(6)), "sunday")

	capacity, err := r.CapacityFor("c1", monday)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCapacityHours, capacity)
	capacity, err = r.CapacityFor("c1", monday.AddDays(5))
	require.NoError(t, err)
	assert.Zero(t, capacity)
}

func TestOverrides(t *testing.T) {
	days := []model.CalendarDay{
		{Date: monday.AddDays(2), DayType: model.DayHoliday},
		{Date: monday.AddDays(3), DayType: model.DayHalf, OpeningTime: ptr(model.MustTimeOfDay("07:00")), ClosingTime: ptr(model.MustTimeOfDay("11:00"))},
		{Date: monday.AddDays(5), DayType: model.DayWorking, CapacityMultiplier: ptr(0.25)},
		{Date: monday.AddDays(4), DayType: model.DayClosure, CapacityMultiplier: ptr(1.0)},
	}
	r, err := NewResolver(model.DefaultWorkingDays(), days, []model.Cell{{ID: "c1", CapacityHoursPerDay: 10}})
	require.NoError(t, err)

	assert.False(t, r.IsWorkingDay(monday.AddDays(2)))
	assert.True(t, r.IsWorkingDay(monday.AddDays(3)))
	assert.True(t, r.IsWorkingDay(monday.AddDays(5)), "working override on saturday")
	assert.False(t, r.IsWorkingDay(monday.AddDays(4)), "closure wins over multiplier")

	capacity, err := r.CapacityFor("c1", monday.AddDays(3))
	require.NoError(t, err)
	assert.InDelta(t, 5, capacity, 1e-9)
	capacity, err = r.CapacityFor("c1", monday.AddDays(5))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, capacity, 1e-9)

	open, closing := r.WorkingWindow(monday.AddDays(3))
	assert.Equal(t, "07:00", open.String())
	assert.Equal(t, "11:00", closing.String())
	open, closing = r.WorkingWindow(monday)
	assert.Equal(t, "08:00", open.String())
	assert.Equal(t, "17:00", closing.String())
}

func TestConfigurationErrors(t *testing.T) {
	_, err := NewResolver(model.WorkingDaysConfig{Mask: 0, DefaultOpening: 480, DefaultClosing: 1020}, nil, nil)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewResolver(model.WorkingDaysConfig{Mask: 200, DefaultOpening: 480, DefaultClosing: 1020}, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	bad := []model.CalendarDay{{Date: monday, DayType: model.DayHalf, CapacityMultiplier: ptr(1.5)}}
	_, err = NewResolver(model.DefaultWorkingDays(), bad, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "outside [0,1]")

	inverted := []model.CalendarDay{{Date: monday, DayType: model.DayWorking, ClosingTime: ptr(model.MustTimeOfDay("06:00"))}}
	_, err = NewResolver(model.DefaultWorkingDays(), inverted, nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestCellErrorsAreLocal(t *testing.T) {
	r, err := NewResolver(model.DefaultWorkingDays(), nil, []model.Cell{
		{ID: "ok", CapacityHoursPerDay: 6},
		{ID: "broken", CapacityHoursPerDay: -1},
	})
	require.NoError(t, err)

	_, err = r.CapacityFor("broken", monday)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "broken", cfgErr.CellID)

	_, err = r.CapacityFor("missing", monday)
	assert.True(t, errors.Is(err, ErrUnknownCell))

	capacity, err := r.CapacityFor("ok", monday)
	require.NoError(t, err)
	assert.Equal(t, 6.0, capacity)
	assert.Equal(t, []string{"broken", "ok"}, r.Cells())
}
