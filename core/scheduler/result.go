package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/cellsched/core/model"
)

// Failure pairs an operation with the reason it could not be planned.
type Failure struct {
	OperationID string `json:"operation_id"`
	JobID       string `json:"job_id"`
	Err         error  `json:"-"`
}

// Kind returns the error category label.
func (f Failure) Kind() string { return model.ErrorKind(f.Err) }

// Result is the output of one run.
type Result struct {
	Start     model.Date                 `json:"start"`
	Scheduled []model.ScheduledOperation `json:"scheduled"`
	Failures  []Failure                  `json:"-"`
}

// Allocations flattens the day allocations of all scheduled operations.
func (r Result) Allocations() []model.DayAllocation {
	var out []model.DayAllocation
	for _, s := range r.Scheduled {
		out = append(out, s.DayAllocations...)
	}
	return out
}

// Err joins the failures, or returns nil when every operation was planned.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("operation %s: %w", f.OperationID, f.Err)
	}
	return errors.Join(errs...)
}

// FailuresByKind counts failures per error category.
func (r Result) FailuresByKind() map[string]int {
	out := map[string]int{}
	for _, f := range r.Failures {
		out[f.Kind()]++
	}
	return out
}

// Summary renders "N scheduled, M failed: reasons".
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d scheduled, %d failed", len(r.Scheduled), len(r.Failures))
	if len(r.Failures) == 0 {
		return b.String()
	}
	b.WriteString(": ")
	for i, f := range r.Failures {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Err.Error())
	}
	return b.String()
}
