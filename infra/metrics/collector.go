package metrics

import (
	"context"

	"github.com/kilianp07/cellsched/core/events"
	coremetrics "github.com/kilianp07/cellsched/core/metrics"
	"github.com/kilianp07/cellsched/infra/logger"
	"github.com/kilianp07/cellsched/internal/eventbus"
)

// StartEventCollector records every RunCompleted event published on bus into
// sink. It stops when ctx is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.RunCompleted], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordScheduleRun(coremetrics.RunEvent{
					RunID:        ev.RunID,
					Start:        ev.Start,
					Scheduled:    ev.Scheduled,
					Failures:     ev.Failures,
					HoursPlanned: ev.HoursPlanned,
					Duration:     ev.Duration,
					Time:         ev.StartedAt,
				}); err != nil {
					log.Warnf("record run %s: %v", ev.RunID, err)
				}
				if r, ok := sink.(coremetrics.UtilizationRecorder); ok && len(ev.Summaries) > 0 {
					if err := r.RecordUtilization(ev.Summaries); err != nil {
						log.Warnf("record utilization for run %s: %v", ev.RunID, err)
					}
				}
			}
		}
	}()
	return done
}
