package model

import "time"

// DayAllocation is the portion of an operation's hours placed on one date.
type DayAllocation struct {
	OperationID    string    `json:"operation_id" yaml:"operation_id"`
	CellID         string    `json:"cell_id" yaml:"cell_id"`
	Date           Date      `json:"date" yaml:"date"`
	HoursAllocated float64   `json:"hours_allocated" yaml:"hours_allocated"`
	StartTime      time.Time `json:"start_time" yaml:"start_time"`
	EndTime        time.Time `json:"end_time" yaml:"end_time"`
}

// ScheduledOperation is the engine output for one operation.
type ScheduledOperation struct {
	OperationID    string          `json:"operation_id"`
	JobID          string          `json:"job_id"`
	CellID         string          `json:"cell_id"`
	PlannedStart   time.Time       `json:"planned_start"`
	PlannedEnd     time.Time       `json:"planned_end"`
	DayAllocations []DayAllocation `json:"day_allocations"`
}

// TotalHours sums the allocated hours.
func (s ScheduledOperation) TotalHours() float64 {
	var total float64
	for _, a := range s.DayAllocations {
		total += a.HoursAllocated
	}
	return total
}

// UtilizationStatus buckets a utilisation ratio for dashboards.
type UtilizationStatus string

const (
	UtilizationNormal     UtilizationStatus = "normal"
	UtilizationWarning    UtilizationStatus = "warning"
	UtilizationHigh       UtilizationStatus = "high"
	UtilizationBottleneck UtilizationStatus = "bottleneck"
)

// CapacitySummary is the load of one cell on one date.
type CapacitySummary struct {
	CellID         string            `json:"cell_id"`
	Date           Date              `json:"date"`
	ScheduledHours float64           `json:"scheduled_hours"`
	CapacityHours  float64           `json:"capacity_hours"`
	Utilization    float64           `json:"utilization"`
	Status         UtilizationStatus `json:"utilization_bucket"`
}
