package metrics

import (
	"time"

	"github.com/kilianp07/cellsched/core/model"
)

// RunEvent summarises one scheduling run.
type RunEvent struct {
	RunID     string
	Start     model.Date
	Scheduled int
	// Failures counts failed operations per error kind.
	Failures     map[string]int
	HoursPlanned float64
	Duration     time.Duration
	Time         time.Time
}

// Failed returns the total number of failed operations.
func (e RunEvent) Failed() int {
	n := 0
	for _, c := range e.Failures {
		n += c
	}
	return n
}

// MetricsSink records scheduling runs.
type MetricsSink interface {
	RecordScheduleRun(ev RunEvent) error
}

// PersistEvent describes one write of a run to the allocation store.
type PersistEvent struct {
	RunID    string
	Backend  string
	Records  int
	Duration time.Duration
	Err      error
	Time     time.Time
}

// PersistRecorder records allocation store writes.
type PersistRecorder interface {
	RecordPersist(ev PersistEvent) error
}

// UtilizationRecorder records capacity summaries.
type UtilizationRecorder interface {
	RecordUtilization(summaries []model.CapacitySummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleRun(RunEvent) error                { return nil }
func (NopSink) RecordPersist(PersistEvent) error                { return nil }
func (NopSink) RecordUtilization([]model.CapacitySummary) error { return nil }
