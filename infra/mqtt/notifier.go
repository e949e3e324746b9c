package mqtt

import (
	"context"

	"github.com/kilianp07/cellsched/core/events"
	"github.com/kilianp07/cellsched/infra/logger"
	"github.com/kilianp07/cellsched/internal/eventbus"
)

// RunNotifier delivers run completion notifications.
type RunNotifier interface {
	NotifyRunCompleted(ev events.RunCompleted) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyRunCompleted(events.RunCompleted) error { return nil }

// StartNotifier forwards every RunCompleted event published on bus to n until
// ctx is canceled or the bus is closed. The returned channel is closed once
// the forwarder has exited.
func StartNotifier(ctx context.Context, bus *eventbus.Bus[events.RunCompleted], n RunNotifier) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || n == nil {
		close(done)
		return done
	}
	log := logger.New("mqtt_forwarder")
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
				if err := n.NotifyRunCompleted(ev); err != nil {
					log.Warnf("notify run %s: %v", ev.RunID, err)
				}
			}
		}
	}()
	return done
}
