package scheduler

import (
	"fmt"
	"time"

	"github.com/kilianp07/cellsched/core/model"
)

// DefaultHorizonDays bounds the forward day walk of one operation.
const DefaultHorizonDays = 365

// Config defines planning parameters loaded from configuration.
type Config struct {
	HorizonDays int    `json:"horizon_days" yaml:"horizon_days"`
	Timezone    string `json:"timezone" yaml:"timezone"`
	// StartDate pins the run start (YYYY-MM-DD). Empty means "today" as
	// supplied by the caller.
	StartDate string `json:"start_date" yaml:"start_date"`
}

// SetDefaults applies the default horizon and UTC.
func (c *Config) SetDefaults() {
	if c.HorizonDays == 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks the horizon, timezone and start date.
func (c Config) Validate() error {
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if c.StartDate != "" {
		if _, err := model.ParseDate(c.StartDate); err != nil {
			return fmt.Errorf("start_date: %w", err)
		}
	}
	return nil
}

// Location returns the configured time zone, UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// RunStart resolves the instant a run starts from. A configured start date
// wins over now.
func (c Config) RunStart(now time.Time) time.Time {
	loc := c.Location()
	if c.StartDate != "" {
		if d, err := model.ParseDate(c.StartDate); err == nil {
			return d.AtOffset(0, loc)
		}
	}
	return now.In(loc)
}
