package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/cellsched/api"
	"github.com/kilianp07/cellsched/core/monitoring"
	"github.com/kilianp07/cellsched/infra/metrics"
)

// Serve starts the event consumers, the Prometheus endpoint, the HTTP API
// and the cron trigger, and blocks until ctx is canceled.
func (s *Service) Serve(ctx context.Context) error {
	s.Start(ctx)

	if addr := s.cfg.Metrics.Addr(); addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.cfg.Trigger.Cron != "" {
		c := cron.New(cron.WithLocation(s.cfg.Scheduler.Location()))
		if _, err := c.AddFunc(s.cfg.Trigger.Cron, func() { s.triggered(ctx, TriggerCron) }); err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		s.log.Infof("auto schedule enabled: %s", s.cfg.Trigger.Cron)
	}
	if s.cfg.Trigger.RunOnStart {
		go s.triggered(ctx, TriggerCron)
	}

	if !s.cfg.API.Enabled {
		<-ctx.Done()
		return nil
	}
	if s.cfg.API.Token == "" {
		s.log.Warnf("api token not set; endpoints are unauthenticated")
	}
	srv := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           api.NewMux(s, s.runs, s.cfg.API.Token),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// triggered runs once with the trigger timeout. Panics are reported to the
// monitor and do not stop the scheduler.
func (s *Service) triggered(ctx context.Context, trigger string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Trigger.Timeout())
	defer cancel()
	err := monitoring.Guard(map[string]string{"module": "trigger", "trigger": trigger}, func() error {
		_, err := s.RunOnce(ctx, trigger)
		return err
	})
	if err != nil {
		s.log.Errorf("%s run failed: %v", trigger, err)
	}
}
