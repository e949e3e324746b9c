package metrics

import (
	"errors"

	"github.com/kilianp07/cellsched/core/model"
)

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduleRun forwards the run to every sink. A failing sink does not
// prevent the others from recording.
func (m *MultiSink) RecordScheduleRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordScheduleRun(ev))
	}
	return errors.Join(errs...)
}

// RecordPersist forwards to sinks implementing PersistRecorder.
func (m *MultiSink) RecordPersist(ev PersistEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PersistRecorder); ok {
			errs = append(errs, r.RecordPersist(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordUtilization forwards to sinks implementing UtilizationRecorder.
func (m *MultiSink) RecordUtilization(summaries []model.CapacitySummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(UtilizationRecorder); ok {
			errs = append(errs, r.RecordUtilization(summaries))
		}
	}
	return errors.Join(errs...)
}
