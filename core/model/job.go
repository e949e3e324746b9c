package model

import "time"

// OperationStatus is the lifecycle status owned by the surrounding application.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusNotStarted OperationStatus = "not_started"
	StatusInProgress OperationStatus = "in_progress"
	StatusCompleted  OperationStatus = "completed"
)

// Schedulable reports whether an operation with this status may be (re)planned.
// An empty status is treated as pending.
func (s OperationStatus) Schedulable() bool {
	switch s {
	case "", StatusPending, StatusNotStarted, "not-started":
		return true
	}
	return false
}

// Job groups operations that share a routing and a due date.
type Job struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name,omitempty" yaml:"name,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	DueDateOverride *time.Time `json:"due_date_override,omitempty" yaml:"due_date_override,omitempty"`
}

// EffectiveDueDate returns the override when present, else the original due
// date. The boolean is false when the job has no due date at all.
func (j Job) EffectiveDueDate() (time.Time, bool) {
	if j.DueDateOverride != nil {
		return *j.DueDateOverride, true
	}
	if j.DueDate != nil {
		return *j.DueDate, true
	}
	return time.Time{}, false
}

// Operation is one routing step of a job executed on a cell.
type Operation struct {
	ID               string          `json:"id" yaml:"id"`
	JobID            string          `json:"job_id" yaml:"job_id"`
	CellID           string          `json:"cell_id" yaml:"cell_id"`
	Sequence         int             `json:"sequence" yaml:"sequence"`
	EstimatedMinutes *float64        `json:"estimated_time_minutes,omitempty" yaml:"estimated_time_minutes,omitempty"`
	Status           OperationStatus `json:"status,omitempty" yaml:"status,omitempty"`

	// Planned times of already started work. They constrain later steps of
	// the same job but are never rewritten.
	PlannedStart *time.Time `json:"planned_start,omitempty" yaml:"planned_start,omitempty"`
	PlannedEnd   *time.Time `json:"planned_end,omitempty" yaml:"planned_end,omitempty"`
}

// RequiredHours returns the estimated duration in hours.
func (o Operation) RequiredHours() float64 {
	if o.EstimatedMinutes == nil {
		return 0
	}
	return *o.EstimatedMinutes / 60
}
