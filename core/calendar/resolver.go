// Package calendar answers working-day, capacity and opening-hour questions
// for one tenant from an immutable snapshot of cells and calendar overrides.
package calendar

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kilianp07/cellsched/core/model"
)

// ErrUnknownCell is returned for cell identifiers absent from the snapshot.
var ErrUnknownCell = errors.New("unknown cell")

// Resolver is a read-only view over the calendar configuration.
type Resolver struct {
	workingDays model.WorkingDaysConfig
	overrides   map[model.Date]model.CalendarDay
	cells       map[string]model.Cell
	cellErrs    map[string]error
}

// NewResolver validates the calendar and builds a Resolver. Calendar level
// problems (mask, multipliers, windows) fail construction. Problems with a
// single cell are kept and reported by CapacityFor so they stay local to the
// operations using that cell.
func NewResolver(wd model.WorkingDaysConfig, days []model.CalendarDay, cells []model.Cell) (*Resolver, error) {
	var errs []error
	if !wd.Mask.Valid() {
		errs = append(errs, &model.ConfigurationError{Reason: fmt.Sprintf("invalid working days mask %d", wd.Mask)})
	}
	if err := checkWindow(wd.DefaultOpening, wd.DefaultClosing); err != nil {
		errs = append(errs, &model.ConfigurationError{Reason: "default window: " + err.Error()})
	}

	r := &Resolver{
		workingDays: wd,
		overrides:   make(map[model.Date]model.CalendarDay, len(days)),
		cells:       make(map[string]model.Cell, len(cells)),
		cellErrs:    map[string]error{},
	}
	for _, d := range days {
		if _, dup := r.overrides[d.Date]; dup {
			errs = append(errs, &model.ConfigurationError{Reason: fmt.Sprintf("duplicate calendar entry for %s", d.Date)})
			continue
		}
		if !d.DayType.Valid() {
			errs = append(errs, &model.ConfigurationError{Reason: fmt.Sprintf("unknown day type %q on %s", d.DayType, d.Date)})
			continue
		}
		if m := d.Multiplier(); m < 0 || m > 1 {
			errs = append(errs, &model.ConfigurationError{Reason: fmt.Sprintf("capacity multiplier %.3f on %s outside [0,1]", m, d.Date)})
			continue
		}
		r.overrides[d.Date] = d
		open, closing := r.WorkingWindow(d.Date)
		if err := checkWindow(open, closing); err != nil {
			delete(r.overrides, d.Date)
			errs = append(errs, &model.ConfigurationError{Reason: fmt.Sprintf("window on %s: %v", d.Date, err)})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, c := range cells {
		c = c.WithDefaults()
		if _, dup := r.cells[c.ID]; dup {
			r.cellErrs[c.ID] = &model.ConfigurationError{CellID: c.ID, Reason: "duplicate cell definition"}
			continue
		}
		r.cells[c.ID] = c
		if c.CapacityHoursPerDay <= 0 {
			r.cellErrs[c.ID] = &model.ConfigurationError{
				CellID: c.ID,
				Reason: fmt.Sprintf("capacity_hours_per_day must be positive, got %.2f", c.CapacityHoursPerDay),
			}
		}
	}
	return r, nil
}

func checkWindow(open, closing model.TimeOfDay) error {
	if !open.Valid() || !closing.Valid() {
		return fmt.Errorf("times must lie within 00:00-24:00")
	}
	if closing <= open {
		return fmt.Errorf("closing time %s not after opening time %s", closing, open)
	}
	return nil
}

// Override returns the calendar entry for the date, if any.
func (r *Resolver) Override(date model.Date) (model.CalendarDay, bool) {
	d, ok := r.overrides[date]
	return d, ok
}

// IsWorkingDay reports whether work may be scheduled on the date.
func (r *Resolver) IsWorkingDay(date model.Date) bool {
	if d, ok := r.overrides[date]; ok {
		return !d.DayType.Closed()
	}
	return r.workingDays.Mask.Has(date.Weekday())
}

// Multiplier returns the share of nominal cell capacity available on the date.
func (r *Resolver) Multiplier(date model.Date) float64 {
	if d, ok := r.overrides[date]; ok {
		return d.Multiplier()
	}
	if r.workingDays.Mask.Has(date.Weekday()) {
		return 1
	}
	return 0
}

// Cell returns the cell definition with defaults applied.
func (r *Resolver) Cell(cellID string) (model.Cell, error) {
	c, ok := r.cells[cellID]
	if !ok {
		return model.Cell{}, fmt.Errorf("%w %q", ErrUnknownCell, cellID)
	}
	if err := r.cellErrs[cellID]; err != nil {
		return c, err
	}
	return c, nil
}

// Cells returns the IDs of all known cells in lexical order.
func (r *Resolver) Cells() []string {
	ids := make([]string, 0, len(r.cells))
	for id := range r.cells {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CapacityFor returns the hours a cell can absorb on the date.
func (r *Resolver) CapacityFor(cellID string, date model.Date) (float64, error) {
	c, err := r.Cell(cellID)
	if err != nil {
		return 0, err
	}
	return c.CapacityHoursPerDay * r.Multiplier(date), nil
}

// WorkingWindow returns the opening and closing time for the date.
func (r *Resolver) WorkingWindow(date model.Date) (model.TimeOfDay, model.TimeOfDay) {
	open, closing := r.workingDays.DefaultOpening, r.workingDays.DefaultClosing
	if d, ok := r.overrides[date]; ok {
		if d.OpeningTime != nil {
			open = *d.OpeningTime
		}
		if d.ClosingTime != nil {
			closing = *d.ClosingTime
		}
	}
	return open, closing
}
