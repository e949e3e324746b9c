package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsched/core/allocation"
	coremetrics "github.com/kilianp07/cellsched/core/metrics"
	"github.com/kilianp07/cellsched/core/model"
	coremon "github.com/kilianp07/cellsched/core/monitoring"
	"github.com/kilianp07/cellsched/core/runlog"
	"github.com/kilianp07/cellsched/core/scheduler"
	"github.com/kilianp07/cellsched/infra/snapshot"
)

var monday = model.NewDate(2025, time.January, 6)

func minutes(v float64) *float64 { return &v }

func due(d model.Date) *time.Time {
	t := d.AtOffset(0, time.UTC)
	return &t
}

func plantSnapshot() scheduler.Snapshot {
	wed := monday.AddDays(2)
	return scheduler.Snapshot{
		WorkingDays: model.DefaultWorkingDays(),
		Cells:       []model.Cell{{ID: "cnc", CapacityHoursPerDay: 8}},
		Jobs: []model.Job{
			{ID: "J1", DueDate: due(monday.AddDays(4))},
			{ID: "J2", DueDate: due(monday.AddDays(2))},
			{ID: "J3"},
		},
		Operations: []model.Operation{
			{ID: "a", JobID: "J1", CellID: "cnc", Sequence: 1, EstimatedMinutes: minutes(600)},
			{ID: "b", JobID: "J2", CellID: "cnc", Sequence: 1, EstimatedMinutes: minutes(240)},
			{ID: "c", JobID: "J3", CellID: "cnc", Sequence: 1},
		},
		ExistingAllocations: []model.DayAllocation{{
			OperationID: "started", CellID: "cnc", Date: wed, HoursAllocated: 2,
			StartTime: wed.AtOffset(8*time.Hour, time.UTC), EndTime: wed.AtOffset(10*time.Hour, time.UTC),
		}},
	}
}

type persistSink struct {
	coremetrics.NopSink
	mu      sync.Mutex
	persist []coremetrics.PersistEvent
}

func (p *persistSink) RecordPersist(ev coremetrics.PersistEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persist = append(p.persist, ev)
	return nil
}

func newTestService(t *testing.T, snap scheduler.Snapshot, store allocation.Store, sink coremetrics.MetricsSink) (*Service, runlog.Store) {
	t.Helper()
	runs, err := runlog.NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs.log"), 0, 0, 0)
	require.NoError(t, err)
	svc := NewService(Deps{
		Source: snapshot.Static(snap),
		Store:  store,
		RunLog: runs,
		Sink:   sink,
		Now:    func() time.Time { return monday.AtOffset(6*time.Hour, time.UTC) },
	})
	t.Cleanup(func() { _ = svc.Close() })
	return svc, runs
}

func TestRunOncePersistsAndReports(t *testing.T) {
	store := allocation.NewMemoryStore()
	sink := &persistSink{}
	svc, runs := newTestService(t, plantSnapshot(), store, sink)
	sub := svc.Bus().Subscribe()

	out, err := svc.RunOnce(context.Background(), TriggerCLI)
	require.NoError(t, err)
	require.Len(t, out.Result.Scheduled, 2)
	require.Len(t, out.Result.Failures, 1)
	assert.Equal(t, "c", out.Result.Failures[0].OperationID)

	recs, err := store.Allocations(context.Background(), allocation.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	_, ok, err := store.Plan(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, out.Summaries, 2)
	assert.Equal(t, model.UtilizationHigh, out.Summaries[0].Status)
	assert.Equal(t, model.UtilizationWarning, out.Summaries[1].Status)

	select {
	case ev := <-sub:
		assert.Equal(t, out.RunID, ev.RunID)
		assert.Equal(t, 2, ev.Scheduled)
		assert.Equal(t, map[string]int{"data": 1}, ev.Failures)
		assert.InDelta(t, 14.0, ev.HoursPlanned, 1e-9)
		assert.Equal(t, TriggerCLI, ev.Trigger)
	case <-time.After(time.Second):
		t.Fatal("no RunCompleted event")
	}

	entries, err := runs.Query(context.Background(), runlog.Query{RunID: out.RunID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Scheduled)
	require.Len(t, entries[0].Failures, 1)
	assert.Equal(t, "data", entries[0].Failures[0].Kind)

	require.Len(t, sink.persist, 1)
	assert.Equal(t, 3, sink.persist[0].Records)
	assert.NoError(t, sink.persist[0].Err)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store := allocation.NewMemoryStore()
	svc, _ := newTestService(t, plantSnapshot(), store, nil)

	_, err := svc.RunOnce(context.Background(), TriggerCLI)
	require.NoError(t, err)
	first, err := store.Allocations(context.Background(), allocation.Query{})
	require.NoError(t, err)

	_, err = svc.RunOnce(context.Background(), TriggerCLI)
	require.NoError(t, err)
	second, err := store.Allocations(context.Background(), allocation.Query{})
	require.NoError(t, err)

	strip := func(recs []allocation.Record) []allocation.Record {
		out := make([]allocation.Record, len(recs))
		for i, r := range recs {
			r.RunID = ""
			out[i] = r
		}
		return out
	}
	assert.Equal(t, strip(first), strip(second))
}

func TestSummaryAndOperationAllocations(t *testing.T) {
	svc, _ := newTestService(t, plantSnapshot(), allocation.NewMemoryStore(), nil)
	_, err := svc.RunOnce(context.Background(), TriggerCLI)
	require.NoError(t, err)

	rows, err := svc.Summary(context.Background(), monday, monday.AddDays(2), nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 8.0, rows[0].ScheduledHours)
	assert.Equal(t, 6.0, rows[1].ScheduledHours)
	assert.Equal(t, 2.0, rows[2].ScheduledHours, "started work from the snapshot")
	assert.Equal(t, model.UtilizationNormal, rows[2].Status)

	_, err = svc.Summary(context.Background(), monday, monday, []string{"ghost"})
	assert.Error(t, err)

	plan, recs, ok, err := svc.OperationAllocations(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "J1", plan.JobID)
	assert.Len(t, recs, 2)

	_, _, ok, err = svc.OperationAllocations(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunSchedule(t *testing.T) {
	svc, _ := newTestService(t, plantSnapshot(), nil, nil)
	s, err := svc.RunSchedule(context.Background(), "api")
	require.NoError(t, err)
	assert.NotEmpty(t, s.RunID)
	assert.Len(t, s.Scheduled, 2)
	require.Len(t, s.Failures, 1)
	assert.Contains(t, s.Summary, "2 scheduled, 1 failed")
}

func TestRunOnceCalendarError(t *testing.T) {
	snap := plantSnapshot()
	snap.WorkingDays.Mask = 0
	svc, runs := newTestService(t, snap, nil, nil)

	out, err := svc.RunOnce(context.Background(), TriggerCron)
	require.Error(t, err)
	assert.Nil(t, out)
	var cfgErr *model.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	entries, err := runs.Query(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].PersistError)
}

type failingStore struct{ *allocation.MemoryStore }

func (failingStore) Replace(context.Context, allocation.Batch) error {
	return errors.New("disk full")
}

type captureMonitor struct {
	coremon.NopMonitor
	mu   sync.Mutex
	errs []error
}

func (c *captureMonitor) CaptureException(err error, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func TestRunOncePersistError(t *testing.T) {
	mon := &captureMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	sink := &persistSink{}
	svc, _ := newTestService(t, plantSnapshot(), failingStore{allocation.NewMemoryStore()}, sink)
	out, err := svc.RunOnce(context.Background(), TriggerCLI)
	require.Error(t, err)
	require.NotNil(t, out, "the plan is returned even when it could not be stored")
	assert.Len(t, out.Result.Scheduled, 2)
	assert.Len(t, mon.errs, 1)
	require.Len(t, sink.persist, 1)
	assert.Error(t, sink.persist[0].Err)
}

func TestTriggeredRecoversPanics(t *testing.T) {
	mon := &captureMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	svc, _ := newTestService(t, plantSnapshot(), panicStore{allocation.NewMemoryStore()}, nil)
	assert.NotPanics(t, func() { svc.triggered(context.Background(), TriggerCron) })
}

type panicStore struct{ *allocation.MemoryStore }

func (panicStore) Replace(context.Context, allocation.Batch) error { panic("boom") }
