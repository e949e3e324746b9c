package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cellsched/app/plugins"
	"github.com/kilianp07/cellsched/config"
	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/events"
	coremetrics "github.com/kilianp07/cellsched/core/metrics"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/monitoring"
	"github.com/kilianp07/cellsched/core/runlog"
	"github.com/kilianp07/cellsched/core/scheduler"
	"github.com/kilianp07/cellsched/core/summary"
	"github.com/kilianp07/cellsched/infra/logger"
	"github.com/kilianp07/cellsched/infra/metrics"
	inframon "github.com/kilianp07/cellsched/infra/monitoring"
	"github.com/kilianp07/cellsched/infra/mqtt"
	"github.com/kilianp07/cellsched/infra/snapshot"
	"github.com/kilianp07/cellsched/internal/eventbus"
	"github.com/kilianp07/cellsched/pkg/export"
)

// Triggers recorded with every run.
const (
	TriggerCLI  = "cli"
	TriggerCron = "cron"
)

// Deps are the collaborators of a Service. Nil fields get in-memory or no-op
// implementations.
type Deps struct {
	Config   *config.Config
	Source   snapshot.Source
	Store    allocation.Store
	RunLog   runlog.Store
	Sink     coremetrics.MetricsSink
	Notifier mqtt.RunNotifier
	Now      func() time.Time
}

// Service runs the scheduler against a snapshot source and persists the
// results. Runs are serialised.
type Service struct {
	cfg      *config.Config
	source   snapshot.Source
	store    allocation.Store
	recorder *allocation.Recorder
	runs     runlog.Store
	sink     coremetrics.MetricsSink
	notifier mqtt.RunNotifier
	bus      *eventbus.Bus[events.RunCompleted]
	now      func() time.Time
	log      logger.Logger

	mu      sync.Mutex
	workers []<-chan struct{}
	started bool
}

// RunOutput is the outcome of one run.
type RunOutput struct {
	RunID     string
	Result    scheduler.Result
	Summaries []model.CapacitySummary
	Duration  time.Duration
}

// New builds a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	store, err := plugins.NewStore(cfg.Store.Module())
	if err != nil {
		return nil, fmt.Errorf("allocation store: %w", err)
	}
	runs, err := plugins.NewRunLog(cfg.RunLog.Module())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("run log: %w", err), store.Close())
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("metrics: %w", err), store.Close(), runs.Close())
	}
	var notifier mqtt.RunNotifier
	if cfg.MQTT.Enabled {
		n, err := mqtt.NewPahoNotifier(cfg.MQTT)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("mqtt notifier: %w", err), store.Close(), runs.Close())
		}
		notifier = n
	}
	return NewService(Deps{
		Config:   cfg,
		Source:   snapshot.NewFileSource(cfg.Snapshot.Path),
		Store:    store,
		RunLog:   runs,
		Sink:     sink,
		Notifier: notifier,
	}), nil
}

// NewService assembles a Service from explicit dependencies.
func NewService(d Deps) *Service {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Source == nil {
		d.Source = snapshot.NewFileSource(d.Config.Snapshot.Path)
	}
	if d.Store == nil {
		d.Store = allocation.NewMemoryStore()
	}
	if d.RunLog == nil {
		d.RunLog = runlog.NopStore{}
	}
	if d.Sink == nil {
		d.Sink = coremetrics.NopSink{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	log := logger.New("service")
	return &Service{
		cfg:      d.Config,
		source:   d.Source,
		store:    d.Store,
		recorder: allocation.NewRecorder(d.Store, logger.New("recorder")),
		runs:     d.RunLog,
		sink:     d.Sink,
		notifier: d.Notifier,
		bus:      eventbus.New[events.RunCompleted](eventbus.DefaultBuffer),
		now:      d.Now,
		log:      log,
	}
}

// Bus exposes the RunCompleted event bus.
func (s *Service) Bus() *eventbus.Bus[events.RunCompleted] { return s.bus }

// RunLog exposes the run log store.
func (s *Service) RunLog() runlog.Store { return s.runs }

// Start launches the event consumers feeding metrics sinks and the MQTT
// notifier. They stop with ctx or Close.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.workers = append(s.workers, metrics.StartEventCollector(ctx, s.bus, s.sink))
	if s.notifier != nil {
		s.workers = append(s.workers, mqtt.StartNotifier(ctx, s.bus, s.notifier))
	}
}

// RunOnce loads the snapshot, plans it, persists the result and publishes a
// RunCompleted event. Operation failures are part of the output; the error
// is reserved for run level problems such as an invalid calendar or a
// failed write.
func (s *Service) RunOnce(ctx context.Context, trigger string) (*RunOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	startedAt := s.now()
	monitoring.AddBreadcrumb("scheduler", fmt.Sprintf("run %s triggered by %s", runID, trigger))

	snap, err := s.source.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load snapshot: %w", err)
		s.fail(ctx, runID, trigger, startedAt, err)
		return nil, err
	}
	eng, err := scheduler.NewEngine(snap.Eligible(), scheduler.Options{
		Start:       s.cfg.Scheduler.RunStart(startedAt),
		HorizonDays: s.cfg.Scheduler.HorizonDays,
		Location:    s.cfg.Scheduler.Location(),
		Logger:      logger.New("scheduler"),
	})
	if err != nil {
		err = fmt.Errorf("calendar: %w", err)
		s.fail(ctx, runID, trigger, startedAt, err)
		return nil, err
	}
	res := eng.Run()

	failed := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		failed[i] = f.OperationID
	}
	persistStart := time.Now()
	persistErr := s.recorder.Record(ctx, runID, res.Scheduled, failed)
	s.recordPersist(runID, len(res.Allocations()), time.Since(persistStart), persistErr)

	out := &RunOutput{RunID: runID, Result: res, Duration: s.now().Sub(startedAt)}
	if from, to, ok := plannedRange(res); ok {
		allocs := append(slices.Clone(snap.ExistingAllocations), res.Allocations()...)
		out.Summaries, err = summary.Summarize(eng.Resolver(), allocs, from, to, nil)
		if err != nil {
			s.log.Warnf("summarize run %s: %v", runID, err)
		}
	}

	hours := 0.0
	for _, so := range res.Scheduled {
		hours += so.TotalHours()
	}
	s.bus.Publish(events.RunCompleted{
		RunID:        runID,
		StartedAt:    startedAt,
		Start:        res.Start,
		Duration:     out.Duration,
		Scheduled:    len(res.Scheduled),
		Failures:     res.FailuresByKind(),
		HoursPlanned: hours,
		Summaries:    out.Summaries,
		Trigger:      trigger,
	})

	entry := runlog.Entry{
		RunID:        runID,
		Timestamp:    startedAt,
		Trigger:      trigger,
		Start:        res.Start,
		DurationMS:   out.Duration.Milliseconds(),
		Scheduled:    len(res.Scheduled),
		HoursPlanned: hours,
	}
	for _, f := range res.Failures {
		entry.Failures = append(entry.Failures, runlog.FailureEntry{
			OperationID: f.OperationID,
			JobID:       f.JobID,
			Kind:        f.Kind(),
			Error:       f.Err.Error(),
		})
	}
	if persistErr != nil {
		entry.PersistError = persistErr.Error()
	}
	if err := s.runs.Append(ctx, entry); err != nil {
		s.log.Warnf("append run log %s: %v", runID, err)
	}

	if persistErr != nil {
		monitoring.CaptureException(persistErr, map[string]string{"module": "recorder", "run_id": runID})
		s.log.Errorf("run %s not persisted: %v", runID, persistErr)
		return out, persistErr
	}
	if len(res.Failures) > 0 {
		s.log.Warnf("run %s (%s): %s", runID, trigger, res.Summary())
	} else {
		s.log.Infof("run %s (%s): %s", runID, trigger, res.Summary())
	}
	return out, nil
}

// RunSchedule runs once and returns the exported schedule.
func (s *Service) RunSchedule(ctx context.Context, trigger string) (export.Schedule, error) {
	out, err := s.RunOnce(ctx, trigger)
	if out == nil {
		return export.Schedule{}, err
	}
	return export.NewSchedule(out.RunID, out.Result), err
}

func (s *Service) fail(ctx context.Context, runID, trigger string, startedAt time.Time, err error) {
	s.log.Errorf("run %s (%s) aborted: %v", runID, trigger, err)
	monitoring.CaptureException(err, map[string]string{"module": "scheduler", "run_id": runID})
	entry := runlog.Entry{
		RunID:        runID,
		Timestamp:    startedAt,
		Trigger:      trigger,
		DurationMS:   s.now().Sub(startedAt).Milliseconds(),
		PersistError: err.Error(),
	}
	if aerr := s.runs.Append(ctx, entry); aerr != nil {
		s.log.Warnf("append run log %s: %v", runID, aerr)
	}
}

func (s *Service) recordPersist(runID string, records int, d time.Duration, err error) {
	r, ok := s.sink.(coremetrics.PersistRecorder)
	if !ok {
		return
	}
	if rerr := r.RecordPersist(coremetrics.PersistEvent{
		RunID:    runID,
		Backend:  s.cfg.Store.Backend,
		Records:  records,
		Duration: d,
		Err:      err,
		Time:     s.now(),
	}); rerr != nil {
		s.log.Warnf("record persist metrics: %v", rerr)
	}
}

// plannedRange spans the run start to the last allocated date.
func plannedRange(res scheduler.Result) (model.Date, model.Date, bool) {
	allocs := res.Allocations()
	if len(allocs) == 0 {
		return model.Date{}, model.Date{}, false
	}
	to := res.Start
	for _, a := range allocs {
		if a.Date.After(to.Time) {
			to = a.Date
		}
	}
	return res.Start, to, true
}

// Close stops the event consumers and releases the stores.
func (s *Service) Close() error {
	s.bus.Close()
	s.mu.Lock()
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()
	for _, done := range workers {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.log.Warnf("event consumer did not stop")
		}
	}
	if d, ok := s.notifier.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	monitoring.Flush(2 * time.Second)
	return errors.Join(s.store.Close(), s.runs.Close())
}
