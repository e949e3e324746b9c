package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsched/core/model"
)

var monday = model.NewDate(2025, time.January, 6)

func scheduled(opID string, days ...float64) model.ScheduledOperation {
	so := model.ScheduledOperation{OperationID: opID, JobID: "j-" + opID, CellID: "cnc"}
	for i, h := range days {
		d := monday.AddDays(i)
		start := d.AtOffset(8*time.Hour, time.UTC)
		so.DayAllocations = append(so.DayAllocations, model.DayAllocation{
			OperationID: opID, CellID: "cnc", Date: d, HoursAllocated: h,
			StartTime: start, EndTime: start.Add(time.Duration(h * float64(time.Hour))),
		})
	}
	so.PlannedStart = so.DayAllocations[0].StartTime
	so.PlannedEnd = so.DayAllocations[len(so.DayAllocations)-1].EndTime
	return so
}

func TestRecordReplacesPerOperation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)

	require.NoError(t, rec.Record(ctx, "run-1", []model.ScheduledOperation{scheduled("a", 8, 8, 4), scheduled("b", 2)}, nil))
	all, err := store.Allocations(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// a shrinks to one day, b fails, c is new.
	require.NoError(t, rec.Record(ctx, "run-2", []model.ScheduledOperation{scheduled("a", 3), scheduled("c", 1)}, []string{"b"}))
	all, err = store.Allocations(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, "run-2", r.RunID)
	}

	_, ok, err := store.Plan(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
	p, ok, err := store.Plan(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, monday.AtOffset(11*time.Hour, time.UTC), p.PlannedEnd)
}

func TestRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ops := []model.ScheduledOperation{scheduled("a", 8, 2)}

	require.NoError(t, rec.Record(ctx, "run", ops, nil))
	first, err := store.Allocations(ctx, Query{})
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, "run", ops, nil))
	second, err := store.Allocations(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Replace(ctx, ToBatch("r", []model.ScheduledOperation{scheduled("a", 8, 8, 8), scheduled("b", 1)})))

	recs, err := store.Allocations(ctx, Query{From: monday.AddDays(1), To: monday.AddDays(2)})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = store.Allocations(ctx, Query{OperationID: "b"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, monday, recs[0].Date)

	recs, err = store.Allocations(ctx, Query{CellID: "paint"})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = store.Allocations(ctx, Query{To: monday})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].OperationID, "same date and cell order by start time then operation")
}

func TestRoundTripToDayAllocations(t *testing.T) {
	so := scheduled("a", 1.0/3, 2)
	back := ToDayAllocations(ToRecords("r", so))
	require.Len(t, back, 2)
	assert.InDelta(t, 1.0/3, back[0].HoursAllocated, 1e-6)
	assert.Equal(t, so.DayAllocations[1].Date, back[1].Date)
}
