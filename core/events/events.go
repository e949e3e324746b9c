// Package events defines the events published on the scheduler event bus.
package events

import (
	"time"

	"github.com/kilianp07/cellsched/core/model"
)

// RunCompleted is published after a scheduling run has been persisted.
type RunCompleted struct {
	RunID     string
	StartedAt time.Time
	Start     model.Date
	Duration  time.Duration
	Scheduled int
	// Failures counts failed operations per error kind.
	Failures     map[string]int
	HoursPlanned float64
	// Summaries holds the utilisation over the planned range, if computed.
	Summaries []model.CapacitySummary
	// Trigger names what started the run: cli, api or cron.
	Trigger string
}

// Failed returns the total number of failed operations.
func (e RunCompleted) Failed() int {
	n := 0
	for _, c := range e.Failures {
		n += c
	}
	return n
}
