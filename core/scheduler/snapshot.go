package scheduler

import "github.com/kilianp07/cellsched/core/model"

// Snapshot is the read-only input of one run, supplied by the surrounding
// application.
type Snapshot struct {
	WorkingDays model.WorkingDaysConfig `json:"working_days" yaml:"working_days"`
	Calendar    []model.CalendarDay     `json:"calendar" yaml:"calendar"`
	Cells       []model.Cell            `json:"cells" yaml:"cells"`
	Jobs        []model.Job             `json:"jobs" yaml:"jobs"`
	Operations  []model.Operation       `json:"operations" yaml:"operations"`
	// ExistingAllocations belong to operations that already started. They
	// consume capacity but are never rewritten.
	ExistingAllocations []model.DayAllocation `json:"existing_allocations" yaml:"existing_allocations"`
}

// Eligible returns a copy of the snapshot keeping only schedulable
// operations, plus started operations that carry a planned end so they still
// constrain their successors.
func (s Snapshot) Eligible() Snapshot {
	out := s
	out.Operations = make([]model.Operation, 0, len(s.Operations))
	for _, op := range s.Operations {
		if op.Status.Schedulable() || op.PlannedEnd != nil {
			out.Operations = append(out.Operations, op)
		}
	}
	return out
}
