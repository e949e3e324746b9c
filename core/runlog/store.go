// Package runlog keeps an audit trail of scheduling runs.
package runlog

import (
	"context"
	"slices"
	"time"

	"github.com/kilianp07/cellsched/core/model"
)

// FailureEntry is one operation that a run could not plan.
type FailureEntry struct {
	OperationID string `json:"operation_id"`
	JobID       string `json:"job_id"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}

// Entry captures the outcome of one run.
type Entry struct {
	RunID        string         `json:"run_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Trigger      string         `json:"trigger"`
	Start        model.Date     `json:"start"`
	DurationMS   int64          `json:"duration_ms"`
	Scheduled    int            `json:"scheduled"`
	HoursPlanned float64        `json:"hours_planned"`
	Failures     []FailureEntry `json:"failures,omitempty"`
	PersistError string         `json:"persist_error,omitempty"`
}

// Query filters entries. Zero values match everything.
type Query struct {
	Start       time.Time
	End         time.Time
	RunID       string
	OperationID string
}

// Match reports whether e satisfies q.
func (q Query) Match(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && e.RunID != q.RunID {
		return false
	}
	if q.OperationID != "" {
		return slices.ContainsFunc(e.Failures, func(f FailureEntry) bool { return f.OperationID == q.OperationID })
	}
	return true
}

// Store persists run entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// NopStore drops every entry.
type NopStore struct{}

func (NopStore) Append(context.Context, Entry) error            { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }
