// Package summary aggregates allocations into per cell and date utilisation.
package summary

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/calendar"
	"github.com/kilianp07/cellsched/core/model"
)

// Bucket thresholds, as utilisation ratios.
const (
	NormalMax  = 0.5
	WarningMax = 0.8
	HighMax    = 1.0
)

// Calendar provides nominal capacity.
type Calendar interface {
	CapacityFor(cellID string, date model.Date) (float64, error)
	Cells() []string
}

// Source provides persisted allocations.
type Source interface {
	Allocations(ctx context.Context, q allocation.Query) ([]allocation.Record, error)
}

// Bucket classifies a utilisation ratio.
func Bucket(ratio float64) model.UtilizationStatus {
	switch {
	case ratio <= NormalMax:
		return model.UtilizationNormal
	case ratio <= WarningMax:
		return model.UtilizationWarning
	case ratio <= HighMax:
		return model.UtilizationHigh
	default:
		return model.UtilizationBottleneck
	}
}

// Summarize builds one CapacitySummary per cell and date in [from, to].
// Dates without capacity and without load are omitted. An empty cells filter
// means every cell of cal. Misconfigured cells count as zero capacity.
func Summarize(cal Calendar, allocs []model.DayAllocation, from, to model.Date, cells []string) ([]model.CapacitySummary, error) {
	if to.Before(from.Time) {
		return nil, fmt.Errorf("invalid range: %s after %s", from, to)
	}
	if len(cells) == 0 {
		cells = cal.Cells()
	}
	load := map[string]map[model.Date]float64{}
	for _, a := range allocs {
		if load[a.CellID] == nil {
			load[a.CellID] = map[model.Date]float64{}
		}
		load[a.CellID][a.Date] += a.HoursAllocated
	}

	var out []model.CapacitySummary
	for _, cellID := range cells {
		for d := from; !d.After(to.Time); d = d.AddDays(1) {
			capacity, err := cal.CapacityFor(cellID, d)
			if errors.Is(err, calendar.ErrUnknownCell) {
				return nil, err
			}
			if err != nil {
				capacity = 0
			}
			used := load[cellID][d]
			if capacity <= 0 && used <= 0 {
				continue
			}
			s := model.CapacitySummary{
				CellID:         cellID,
				Date:           d,
				ScheduledHours: round(used),
				CapacityHours:  round(capacity),
			}
			if capacity > 0 {
				s.Utilization = round(used / capacity)
				s.Status = Bucket(used / capacity)
			} else {
				s.Status = model.UtilizationBottleneck
			}
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b model.CapacitySummary) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.CellID, b.CellID)
	})
	return out, nil
}

// CellStats describes the utilisation distribution of one cell over a report.
type CellStats struct {
	CellID      string  `json:"cell_id"`
	Days        int     `json:"days"`
	Mean        float64 `json:"mean_utilization"`
	Peak        float64 `json:"peak_utilization"`
	StdDev      float64 `json:"stddev_utilization"`
	Bottlenecks int     `json:"bottleneck_days"`
}

// Stats computes per cell statistics over summaries, ordered by cell.
func Stats(summaries []model.CapacitySummary) []CellStats {
	ratios := map[string][]float64{}
	bottlenecks := map[string]int{}
	for _, s := range summaries {
		ratios[s.CellID] = append(ratios[s.CellID], s.Utilization)
		if s.Status == model.UtilizationBottleneck {
			bottlenecks[s.CellID]++
		}
	}
	out := make([]CellStats, 0, len(ratios))
	for cellID, r := range ratios {
		cs := CellStats{
			CellID:      cellID,
			Days:        len(r),
			Mean:        round(stat.Mean(r, nil)),
			Peak:        round(floats.Max(r)),
			Bottlenecks: bottlenecks[cellID],
		}
		if len(r) > 1 {
			cs.StdDev = round(stat.StdDev(r, nil))
		}
		out = append(out, cs)
	}
	slices.SortFunc(out, func(a, b CellStats) int { return cmp.Compare(a.CellID, b.CellID) })
	return out
}

// Reporter summarises persisted allocations.
type Reporter struct {
	cal Calendar
	src Source
}

// NewReporter returns a Reporter over cal and src.
func NewReporter(cal Calendar, src Source) *Reporter {
	return &Reporter{cal: cal, src: src}
}

// Report loads allocations in [from, to] for the given cells and summarises
// them.
func (r *Reporter) Report(ctx context.Context, from, to model.Date, cells []string) ([]model.CapacitySummary, error) {
	q := allocation.Query{From: from, To: to}
	if len(cells) == 1 {
		q.CellID = cells[0]
	}
	recs, err := r.src.Allocations(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	return Summarize(r.cal, allocation.ToDayAllocations(recs), from, to, cells)
}

func round(v float64) float64 { return math.Round(v*1e4) / 1e4 }
