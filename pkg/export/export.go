// Package export writes schedules and capacity summaries as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/scheduler"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (json or csv)", s)
}

// FailureRow is the exported form of a scheduling failure.
type FailureRow struct {
	OperationID string `json:"operation_id"`
	JobID       string `json:"job_id"`
	Kind        string `json:"kind"`
	Reason      string `json:"reason"`
}

// Schedule is the JSON document produced for one run.
type Schedule struct {
	RunID     string                     `json:"run_id,omitempty"`
	Start     model.Date                 `json:"start"`
	Summary   string                     `json:"summary"`
	Scheduled []model.ScheduledOperation `json:"scheduled"`
	Failures  []FailureRow               `json:"failures"`
}

// NewSchedule converts an engine result into its exported form.
func NewSchedule(runID string, res scheduler.Result) Schedule {
	s := Schedule{
		RunID:     runID,
		Start:     res.Start,
		Summary:   res.Summary(),
		Scheduled: res.Scheduled,
		Failures:  make([]FailureRow, 0, len(res.Failures)),
	}
	if s.Scheduled == nil {
		s.Scheduled = []model.ScheduledOperation{}
	}
	for _, f := range res.Failures {
		s.Failures = append(s.Failures, FailureRow{
			OperationID: f.OperationID,
			JobID:       f.JobID,
			Kind:        f.Kind(),
			Reason:      f.Err.Error(),
		})
	}
	return s
}

// WriteSchedule writes the schedule in the given format. CSV output has one
// row per day allocation; failures are only part of the JSON document.
func WriteSchedule(w io.Writer, f Format, s Schedule) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatCSV:
		return WriteAllocationsCSV(w, s.Scheduled)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// WriteSummaries writes capacity summaries in the given format.
func WriteSummaries(w io.Writer, f Format, rows []model.CapacitySummary) error {
	switch f {
	case FormatJSON:
		if rows == nil {
			rows = []model.CapacitySummary{}
		}
		return writeJSON(w, rows)
	case FormatCSV:
		return WriteSummaryCSV(w, rows)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAllocationsCSV writes the day allocations of every operation.
func WriteAllocationsCSV(w io.Writer, ops []model.ScheduledOperation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"job_id", "operation_id", "cell_id", "date", "hours_allocated", "start_time", "end_time"}); err != nil {
		return err
	}
	for _, op := range ops {
		for _, a := range op.DayAllocations {
			rec := []string{
				op.JobID,
				a.OperationID,
				a.CellID,
				a.Date.String(),
				formatFloat(a.HoursAllocated),
				a.StartTime.Format(time.RFC3339),
				a.EndTime.Format(time.RFC3339),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per cell and date.
func WriteSummaryCSV(w io.Writer, rows []model.CapacitySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cell_id", "date", "scheduled_hours", "capacity_hours", "utilization", "utilization_bucket"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CellID,
			r.Date.String(),
			formatFloat(r.ScheduledHours),
			formatFloat(r.CapacityHours),
			formatFloat(r.Utilization),
			string(r.Status),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
