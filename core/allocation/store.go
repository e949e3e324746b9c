// Package allocation persists the plans produced by a scheduling run.
package allocation

import (
	"context"
	"time"

	"github.com/kilianp07/cellsched/core/model"
)

// Record is one persisted day allocation.
type Record struct {
	RunID       string     `json:"run_id,omitempty"`
	OperationID string     `json:"operation_id"`
	JobID       string     `json:"job_id"`
	CellID      string     `json:"cell_id"`
	Date        model.Date `json:"date"`
	Hours       float64    `json:"hours_allocated"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
}

// Plan is the persisted planned window of one operation.
type Plan struct {
	RunID        string    `json:"run_id,omitempty"`
	OperationID  string    `json:"operation_id"`
	JobID        string    `json:"job_id"`
	CellID       string    `json:"cell_id"`
	PlannedStart time.Time `json:"planned_start"`
	PlannedEnd   time.Time `json:"planned_end"`
}

// Batch is the output of one run as written to a Store.
type Batch struct {
	RunID   string
	Plans   []Plan
	Records []Record
	// Cleared lists operations whose previous plan must be dropped without
	// a replacement, typically because they failed this run.
	Cleared []string
}

// OperationIDs returns every operation touched by the batch.
func (b Batch) OperationIDs() []string {
	ids := make([]string, 0, len(b.Plans)+len(b.Cleared))
	for _, p := range b.Plans {
		ids = append(ids, p.OperationID)
	}
	return append(ids, b.Cleared...)
}

// Query filters allocation records. Zero values match everything.
type Query struct {
	From        model.Date
	To          model.Date
	CellID      string
	OperationID string
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	if !q.From.IsZero() && r.Date.Before(q.From.Time) {
		return false
	}
	if !q.To.IsZero() && r.Date.After(q.To.Time) {
		return false
	}
	if q.CellID != "" && r.CellID != q.CellID {
		return false
	}
	if q.OperationID != "" && r.OperationID != q.OperationID {
		return false
	}
	return true
}

// Store persists plans. Replace must drop every prior plan and allocation of
// the operations in the batch before writing the new ones, atomically.
type Store interface {
	Replace(ctx context.Context, b Batch) error
	Allocations(ctx context.Context, q Query) ([]Record, error)
	Plan(ctx context.Context, operationID string) (Plan, bool, error)
	Close() error
}
