package allocation

import (
	"context"
	"fmt"
	"math"

	"github.com/kilianp07/cellsched/core/logger"
	"github.com/kilianp07/cellsched/core/model"
)

// Recorder turns scheduled operations into persisted plans.
type Recorder struct {
	store Store
	log   logger.Logger
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store Store, log logger.Logger) *Recorder {
	return &Recorder{store: store, log: logger.OrNop(log)}
}

// Record replaces the persisted plans of the scheduled operations and clears
// the plans of failed ones.
func (r *Recorder) Record(ctx context.Context, runID string, scheduled []model.ScheduledOperation, failed []string) error {
	b := ToBatch(runID, scheduled)
	b.Cleared = failed
	if err := r.store.Replace(ctx, b); err != nil {
		return fmt.Errorf("record run %s: %w", runID, err)
	}
	r.log.Infof("recorded %d plans and %d allocations for run %s (%d cleared)",
		len(b.Plans), len(b.Records), runID, len(b.Cleared))
	return nil
}

// ToBatch converts scheduled operations to their persisted form.
func ToBatch(runID string, scheduled []model.ScheduledOperation) Batch {
	b := Batch{RunID: runID}
	for _, so := range scheduled {
		b.Plans = append(b.Plans, Plan{
			RunID:        runID,
			OperationID:  so.OperationID,
			JobID:        so.JobID,
			CellID:       so.CellID,
			PlannedStart: so.PlannedStart,
			PlannedEnd:   so.PlannedEnd,
		})
		b.Records = append(b.Records, ToRecords(runID, so)...)
	}
	return b
}

// ToRecords converts the day allocations of one operation.
func ToRecords(runID string, so model.ScheduledOperation) []Record {
	out := make([]Record, 0, len(so.DayAllocations))
	for _, a := range so.DayAllocations {
		out = append(out, Record{
			RunID:       runID,
			OperationID: so.OperationID,
			JobID:       so.JobID,
			CellID:      a.CellID,
			Date:        a.Date,
			Hours:       roundHours(a.HoursAllocated),
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
		})
	}
	return out
}

// ToDayAllocations converts records back to engine input, e.g. to preload
// capacity consumed by earlier runs.
func ToDayAllocations(recs []Record) []model.DayAllocation {
	out := make([]model.DayAllocation, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.DayAllocation{
			OperationID:    r.OperationID,
			CellID:         r.CellID,
			Date:           r.Date,
			HoursAllocated: r.Hours,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
		})
	}
	return out
}

func roundHours(h float64) float64 { return math.Round(h*1e6) / 1e6 }
