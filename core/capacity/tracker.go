// Package capacity keeps the consumed-hours ledger of a single scheduling run.
package capacity

import (
	"github.com/kilianp07/cellsched/core/model"
)

// CapacitySource provides nominal capacity per cell and date.
type CapacitySource interface {
	CapacityFor(cellID string, date model.Date) (float64, error)
}

type slot struct {
	cellID string
	day    int64
}

// Tracker records reserved hours per (cell, date). It is not safe for
// concurrent use and must not outlive the run that created it.
type Tracker struct {
	source   CapacitySource
	consumed map[slot]float64
	// cursor holds the latest reserved end per slot, as hours after midnight.
	cursor map[slot]float64
}

// NewTracker returns an empty ledger backed by source.
func NewTracker(source CapacitySource) *Tracker {
	return &Tracker{source: source, consumed: make(map[slot]float64), cursor: make(map[slot]float64)}
}

// Consumed returns the hours already reserved on the cell and date.
func (t *Tracker) Consumed(cellID string, date model.Date) float64 {
	return t.consumed[slot{cellID, date.Ordinal()}]
}

// Available returns nominal capacity minus consumed hours, floored at zero.
func (t *Tracker) Available(cellID string, date model.Date) (float64, error) {
	capacity, err := t.source.CapacityFor(cellID, date)
	if err != nil {
		return 0, err
	}
	avail := capacity - t.Consumed(cellID, date)
	if avail < 0 {
		return 0, nil
	}
	return avail, nil
}

// Reserve adds hours to the ledger. Callers must not request more than
// Available; the tracker does not reject over-reservation.
func (t *Tracker) Reserve(cellID string, date model.Date, hours float64) {
	t.consumed[slot{cellID, date.Ordinal()}] += hours
}

// Cursor returns the latest end, in hours after midnight, of the slots
// reserved through Advance on the cell and date. ok is false when none was.
func (t *Tracker) Cursor(cellID string, date model.Date) (float64, bool) {
	h, ok := t.cursor[slot{cellID, date.Ordinal()}]
	return h, ok
}

// Advance moves the cursor of the cell and date to endHours if it is later.
func (t *Tracker) Advance(cellID string, date model.Date, endHours float64) {
	k := slot{cellID, date.Ordinal()}
	if cur, ok := t.cursor[k]; !ok || endHours > cur {
		t.cursor[k] = endHours
	}
}

// Preload books allocations of work that already started. These may exceed
// nominal capacity.
func (t *Tracker) Preload(allocs []model.DayAllocation) {
	for _, a := range allocs {
		t.Reserve(a.CellID, a.Date, a.HoursAllocated)
	}
}

// EarliestFree returns the first date in [from, from+horizon) on which the
// cell has capacity left. ok is false when no such date exists.
func (t *Tracker) EarliestFree(cellID string, from model.Date, horizon int) (model.Date, bool, error) {
	for i := 0; i < horizon; i++ {
		d := from.AddDays(i)
		avail, err := t.Available(cellID, d)
		if err != nil {
			return model.Date{}, false, err
		}
		if avail > 0 {
			return d, true, nil
		}
	}
	return model.Date{}, false, nil
}
