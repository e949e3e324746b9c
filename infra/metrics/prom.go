package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cellsched/core/metrics"
	"github.com/kilianp07/cellsched/core/model"
)

// PromSink records scheduling runs in Prometheus metrics.
type PromSink struct {
	runs        prometheus.Counter
	scheduled   prometheus.Counter
	failed      *prometheus.CounterVec
	duration    prometheus.Histogram
	hours       prometheus.Gauge
	persist     *prometheus.HistogramVec
	utilization *prometheus.GaugeVec
}

// NewPromSink registers scheduler metrics on the default Prometheus
// registerer. The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cellsched_runs_total",
		Help: "Total number of scheduling runs",
	})); err != nil {
		return nil, err
	}
	if s.scheduled, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cellsched_operations_scheduled_total",
		Help: "Operations successfully planned",
	})); err != nil {
		return nil, err
	}
	if s.failed, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cellsched_operations_failed_total",
		Help: "Operations that could not be planned, by error kind",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cellsched_run_duration_seconds",
		Help:    "Wall time of the allocation pass",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.hours, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cellsched_hours_planned",
		Help: "Hours planned by the last run",
	})); err != nil {
		return nil, err
	}
	if s.persist, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cellsched_persist_duration_seconds",
		Help:    "Time to replace allocations in the store",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "status"})); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cellsched_cell_utilization_ratio",
		Help: "Scheduled hours over capacity per cell and date",
	}, []string{"cell_id", "date"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScheduleRun updates the run counters.
func (s *PromSink) RecordScheduleRun(ev coremetrics.RunEvent) error {
	s.runs.Inc()
	s.scheduled.Add(float64(ev.Scheduled))
	for kind, n := range ev.Failures {
		s.failed.WithLabelValues(kind).Add(float64(n))
	}
	s.duration.Observe(ev.Duration.Seconds())
	s.hours.Set(ev.HoursPlanned)
	return nil
}

// RecordPersist observes the store write latency.
func (s *PromSink) RecordPersist(ev coremetrics.PersistEvent) error {
	status := "ok"
	if ev.Err != nil {
		status = "error"
	}
	s.persist.WithLabelValues(ev.Backend, status).Observe(ev.Duration.Seconds())
	return nil
}

// RecordUtilization sets the utilisation gauge of each summary.
func (s *PromSink) RecordUtilization(summaries []model.CapacitySummary) error {
	for _, sum := range summaries {
		s.utilization.WithLabelValues(sum.CellID, sum.Date.String()).Set(sum.Utilization)
	}
	return nil
}
