package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsched/api/capacity"
	"github.com/kilianp07/cellsched/api/operations"
	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/calendar"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/runlog"
	"github.com/kilianp07/cellsched/pkg/export"
)

var monday = model.NewDate(2025, time.January, 6)

type fakeBackend struct {
	cells    []string
	triggers []string
	runErr   error
}

func (f *fakeBackend) Summary(_ context.Context, from, to model.Date, cells []string) ([]model.CapacitySummary, error) {
	f.cells = cells
	for _, c := range cells {
		if c == "ghost" {
			return nil, fmt.Errorf("%w %q", calendar.ErrUnknownCell, c)
		}
	}
	return []model.CapacitySummary{
		{CellID: "cnc", Date: from, ScheduledHours: 4, CapacityHours: 8, Utilization: 0.5, Status: model.UtilizationNormal},
		{CellID: "cnc", Date: to, ScheduledHours: 10, CapacityHours: 8, Utilization: 1.25, Status: model.UtilizationBottleneck},
	}, nil
}

func (f *fakeBackend) OperationAllocations(_ context.Context, id string) (allocation.Plan, []allocation.Record, bool, error) {
	if id != "op1" {
		return allocation.Plan{}, nil, false, nil
	}
	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	return allocation.Plan{OperationID: "op1", JobID: "J1", CellID: "cnc", PlannedStart: start, PlannedEnd: start.Add(2 * time.Hour)},
		[]allocation.Record{{OperationID: "op1", CellID: "cnc", Date: monday, Hours: 2, StartTime: start, EndTime: start.Add(2 * time.Hour)}},
		true, nil
}

func (f *fakeBackend) RunSchedule(_ context.Context, trigger string) (export.Schedule, error) {
	f.triggers = append(f.triggers, trigger)
	if f.runErr != nil {
		return export.Schedule{}, f.runErr
	}
	return export.Schedule{RunID: "run-1", Start: monday, Summary: "0 scheduled, 0 failed"}, nil
}

func serve(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCapacitySummary(t *testing.T) {
	b := &fakeBackend{}
	mux := NewMux(b, nil, "")

	rr := serve(t, mux, http.MethodGet, "/api/capacity/summary?from=2025-01-06&to=2025-01-07&cell=cnc,%20mill", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"cnc", "mill"}, b.cells)

	var resp capacity.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, monday, resp.From)
	require.Len(t, resp.Summaries, 2)
	require.Len(t, resp.Stats, 1)
	assert.Equal(t, 1, resp.Stats[0].Bottlenecks)
	assert.InDelta(t, 1.25, resp.Stats[0].Peak, 1e-9)
}

func TestCapacitySummaryBadRequests(t *testing.T) {
	mux := NewMux(&fakeBackend{}, nil, "")
	for _, target := range []string{
		"/api/capacity/summary",
		"/api/capacity/summary?from=2025-01-06",
		"/api/capacity/summary?from=06/01/2025&to=2025-01-07",
		"/api/capacity/summary?from=2025-01-07&to=2025-01-06",
		"/api/capacity/summary?from=2025-01-01&to=2026-06-01",
		"/api/capacity/summary?from=2025-01-06&to=2025-01-07&cell=ghost",
	} {
		rr := serve(t, mux, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestOperationAllocations(t *testing.T) {
	mux := NewMux(&fakeBackend{}, nil, "")

	rr := serve(t, mux, http.MethodGet, "/api/operations/op1/allocations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp operations.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "J1", resp.JobID)
	require.Len(t, resp.DayAllocations, 1)
	assert.Equal(t, 2.0, resp.DayAllocations[0].Hours)

	rr = serve(t, mux, http.MethodGet, "/api/operations/nope/allocations", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScheduleRun(t *testing.T) {
	b := &fakeBackend{}
	mux := NewMux(b, nil, "")

	rr := serve(t, mux, http.MethodPost, "/api/schedule/run", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"api"}, b.triggers)
	var s export.Schedule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, "run-1", s.RunID)

	rr = serve(t, mux, http.MethodGet, "/api/schedule/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	b.runErr = &model.ConfigurationError{Reason: "invalid working days mask 0"}
	rr = serve(t, mux, http.MethodPost, "/api/schedule/run", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	b.runErr = errors.New("store unavailable")
	rr = serve(t, mux, http.MethodPost, "/api/schedule/run", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestBearerToken(t *testing.T) {
	mux := NewMux(&fakeBackend{}, nil, "secret")

	rr := serve(t, mux, http.MethodPost, "/api/schedule/run", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = serve(t, mux, http.MethodPost, "/api/schedule/run", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = serve(t, mux, http.MethodPost, "/api/schedule/run", "secret")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

type memRunLog struct {
	runlog.NopStore
	entries []runlog.Entry
}

func (m *memRunLog) Query(_ context.Context, q runlog.Query) ([]runlog.Entry, error) {
	var out []runlog.Entry
	for _, e := range m.entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRunLog(t *testing.T) {
	store := &memRunLog{entries: []runlog.Entry{
		{RunID: "r1", Timestamp: time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)},
		{RunID: "r2", Timestamp: time.Date(2025, 1, 7, 6, 0, 0, 0, time.UTC)},
	}}
	mux := NewMux(&fakeBackend{}, store, "")

	rr := serve(t, mux, http.MethodGet, "/api/runs?start=2025-01-07T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []runlog.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "r2", entries[0].RunID)

	rr = serve(t, mux, http.MethodGet, "/api/runs?run_id=none", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
