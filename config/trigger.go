package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerConfig schedules automatic runs.
type TriggerConfig struct {
	// Cron is a standard five field cron expression. Empty disables the
	// automatic trigger.
	Cron       string `json:"cron"`
	RunOnStart bool   `json:"run_on_start"`
	// TimeoutSeconds bounds one triggered run.
	TimeoutSeconds int `json:"timeout_seconds"`
}

func (c TriggerConfig) Validate() error {
	if c.Cron != "" {
		if _, err := cron.ParseStandard(c.Cron); err != nil {
			return fmt.Errorf("cron %q: %w", c.Cron, err)
		}
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	return nil
}

// Timeout returns the run timeout, five minutes by default.
func (c TriggerConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
