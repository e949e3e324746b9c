package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/calendar"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/summary"
)

// Summary reports utilisation in [from, to] over the persisted plans plus
// the allocations of started work listed in the current snapshot.
func (s *Service) Summary(ctx context.Context, from, to model.Date, cells []string) ([]model.CapacitySummary, error) {
	snap, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	resolver, err := calendar.NewResolver(snap.WorkingDays, snap.Calendar, snap.Cells)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	src := withExisting{store: s.store, existing: snap.ExistingAllocations}
	return summary.NewReporter(resolver, src).Report(ctx, from, to, cells)
}

// OperationAllocations returns the persisted plan and day allocations of
// one operation.
func (s *Service) OperationAllocations(ctx context.Context, operationID string) (allocation.Plan, []allocation.Record, bool, error) {
	plan, ok, err := s.store.Plan(ctx, operationID)
	if err != nil || !ok {
		return allocation.Plan{}, nil, ok, err
	}
	recs, err := s.store.Allocations(ctx, allocation.Query{OperationID: operationID})
	if err != nil {
		return allocation.Plan{}, nil, false, err
	}
	return plan, recs, true, nil
}

// withExisting overlays snapshot allocations of started operations on the
// store. Stored plans of those operations are stale and skipped.
type withExisting struct {
	store    allocation.Store
	existing []model.DayAllocation
}

func (w withExisting) Allocations(ctx context.Context, q allocation.Query) ([]allocation.Record, error) {
	recs, err := w.store.Allocations(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(w.existing) == 0 {
		return recs, nil
	}
	started := make(map[string]bool, len(w.existing))
	for _, a := range w.existing {
		started[a.OperationID] = true
	}
	out := make([]allocation.Record, 0, len(recs)+len(w.existing))
	for _, r := range recs {
		if !started[r.OperationID] {
			out = append(out, r)
		}
	}
	for _, a := range w.existing {
		r := allocation.Record{
			OperationID: a.OperationID,
			CellID:      a.CellID,
			Date:        a.Date,
			Hours:       a.HoursAllocated,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
		}
		if q.Match(r) {
			out = append(out, r)
		}
	}
	allocation.SortRecords(out)
	return out, nil
}
