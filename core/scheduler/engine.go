package scheduler

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/kilianp07/cellsched/core/calendar"
	"github.com/kilianp07/cellsched/core/capacity"
	"github.com/kilianp07/cellsched/core/logger"
	"github.com/kilianp07/cellsched/core/model"
)

// epsilon absorbs floating point noise when comparing hours.
const epsilon = 1e-9

// Options tune one Engine.
type Options struct {
	// Start is the earliest instant any operation may begin. Its date is
	// the run start date; a non-midnight time also delays the first day.
	Start       time.Time
	HorizonDays int
	Location    *time.Location
	Logger      logger.Logger
}

// Engine plans one snapshot. It is built per invocation and holds no state
// shared with other runs.
type Engine struct {
	snap     Snapshot
	resolver *calendar.Resolver
	start    time.Time
	horizon  int
	loc      *time.Location
	log      logger.Logger
}

// NewEngine validates the calendar of snap and prepares a run. Calendar level
// configuration errors are returned here; everything else is reported per
// operation by Run.
func NewEngine(snap Snapshot, opts Options) (*Engine, error) {
	resolver, err := calendar.NewResolver(snap.WorkingDays, snap.Calendar, snap.Cells)
	if err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	horizon := opts.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	if opts.Start.IsZero() {
		return nil, fmt.Errorf("run start is required")
	}
	return &Engine{
		snap:     snap,
		resolver: resolver,
		start:    opts.Start.In(loc),
		horizon:  horizon,
		loc:      loc,
		log:      logger.OrNop(opts.Logger),
	}, nil
}

// Resolver exposes the calendar built for this run.
func (e *Engine) Resolver() *calendar.Resolver { return e.resolver }

// Run computes the full schedule. It never aborts: operations that cannot be
// planned are returned as failures and the walk continues.
func (e *Engine) Run() Result {
	tracker := capacity.NewTracker(e.resolver)
	tracker.Preload(e.snap.ExistingAllocations)

	res := Result{Start: model.DateOf(e.start)}
	byJob := groupOperations(e.snap.Operations)
	known := make(map[string]bool, len(e.snap.Jobs))

	for _, job := range SortJobs(e.snap.Jobs) {
		known[job.ID] = true
		notBefore := e.start
		for _, op := range byJob[job.ID] {
			if !op.Status.Schedulable() {
				if op.PlannedEnd != nil && op.PlannedEnd.After(notBefore) {
					notBefore = op.PlannedEnd.In(e.loc)
				}
				continue
			}
			so, err := e.place(tracker, op, notBefore)
			if err != nil {
				e.log.Warnf("operation %s of job %s not scheduled: %v", op.ID, job.ID, err)
				res.Failures = append(res.Failures, Failure{OperationID: op.ID, JobID: job.ID, Err: err})
				continue
			}
			e.log.Debugw("operation scheduled", map[string]any{
				"operation_id":  op.ID,
				"job_id":        job.ID,
				"cell_id":       op.CellID,
				"planned_start": so.PlannedStart,
				"planned_end":   so.PlannedEnd,
				"days":          len(so.DayAllocations),
			})
			res.Scheduled = append(res.Scheduled, so)
			notBefore = so.PlannedEnd
		}
	}

	var orphans []model.Operation
	for jobID, ops := range byJob {
		if !known[jobID] {
			orphans = append(orphans, ops...)
		}
	}
	slices.SortFunc(orphans, func(a, b model.Operation) int { return cmp.Compare(a.ID, b.ID) })
	for _, op := range orphans {
		if !op.Status.Schedulable() {
			continue
		}
		err := &model.DataError{OperationID: op.ID, Reason: fmt.Sprintf("unknown job_id %q", op.JobID)}
		e.log.Warnf("%v", err)
		res.Failures = append(res.Failures, Failure{OperationID: op.ID, JobID: op.JobID, Err: err})
	}
	return res
}

func (e *Engine) validate(op model.Operation) error {
	if op.EstimatedMinutes == nil {
		return &model.DataError{OperationID: op.ID, Reason: "missing estimated_time_minutes"}
	}
	if *op.EstimatedMinutes <= 0 || math.IsNaN(*op.EstimatedMinutes) || math.IsInf(*op.EstimatedMinutes, 0) {
		return &model.DataError{OperationID: op.ID, Reason: fmt.Sprintf("estimated_time_minutes must be positive, got %v", *op.EstimatedMinutes)}
	}
	if op.RequiredHours() <= epsilon {
		return &model.DataError{OperationID: op.ID, Reason: fmt.Sprintf("estimated_time_minutes %v is too small to schedule", *op.EstimatedMinutes)}
	}
	if _, err := e.resolver.Cell(op.CellID); err != nil {
		if errors.Is(err, calendar.ErrUnknownCell) {
			return &model.DataError{OperationID: op.ID, Reason: fmt.Sprintf("unknown cell_id %q", op.CellID)}
		}
		return err
	}
	return nil
}

// place walks forward from the eligible start and reserves capacity for op.
// Reservations are only committed once the whole operation fits.
func (e *Engine) place(tracker *capacity.Tracker, op model.Operation, notBefore time.Time) (model.ScheduledOperation, error) {
	if err := e.validate(op); err != nil {
		return model.ScheduledOperation{}, err
	}
	remaining := op.RequiredHours()

	from := model.DateOf(notBefore.In(e.loc))
	free, ok, err := tracker.EarliestFree(op.CellID, from, e.horizon)
	if err != nil {
		return model.ScheduledOperation{}, err
	}
	if ok && free.After(from.Time) {
		from = free
	}
	nbDate := model.DateOf(notBefore.In(e.loc))
	nbHours := model.WallHours(notBefore, e.loc)

	var allocs []model.DayAllocation
	var ends []float64
	for i := 0; i < e.horizon && remaining > epsilon; i++ {
		date := from.AddDays(i)
		if !e.resolver.IsWorkingDay(date) {
			continue
		}
		avail, err := tracker.Available(op.CellID, date)
		if err != nil {
			return model.ScheduledOperation{}, err
		}
		if avail <= epsilon {
			continue
		}
		nominal, err := e.resolver.CapacityFor(op.CellID, date)
		if err != nil {
			return model.ScheduledOperation{}, err
		}
		open, closing := e.resolver.WorkingWindow(date)
		openH, closeH := open.Hours(), closing.Hours()

		// Capacity above the window length (parallel machines) is
		// compressed into the window.
		scale := 1.0
		if window := closeH - openH; nominal > window {
			scale = window / nominal
		}
		startH := openH + tracker.Consumed(op.CellID, date)*scale
		if cur, ok := tracker.Cursor(op.CellID, date); ok && cur > startH+epsilon {
			startH = cur
		}
		if date == nbDate && nbHours > startH {
			startH = nbHours
		}
		if startH >= closeH-epsilon {
			continue
		}
		usable := math.Min(avail, (closeH-startH)/scale)
		if usable <= epsilon {
			continue
		}

		hours := math.Min(usable, remaining)
		endH := closeH
		if remaining-hours <= epsilon {
			hours = remaining
			endH = math.Min(startH+hours*scale, closeH)
		}
		allocs = append(allocs, model.DayAllocation{
			OperationID:    op.ID,
			CellID:         op.CellID,
			Date:           date,
			HoursAllocated: hours,
			StartTime:      date.AtOffset(hoursToDuration(startH), e.loc),
			EndTime:        date.AtOffset(hoursToDuration(endH), e.loc),
		})
		ends = append(ends, endH)
		remaining -= hours
	}

	if remaining > epsilon || len(allocs) == 0 {
		return model.ScheduledOperation{}, &model.NoCapacityError{
			OperationID:    op.ID,
			CellID:         op.CellID,
			From:           from,
			HorizonDays:    e.horizon,
			RemainingHours: remaining,
		}
	}
	for i, a := range allocs {
		tracker.Reserve(a.CellID, a.Date, a.HoursAllocated)
		tracker.Advance(a.CellID, a.Date, ends[i])
	}
	return model.ScheduledOperation{
		OperationID:    op.ID,
		JobID:          op.JobID,
		CellID:         op.CellID,
		PlannedStart:   allocs[0].StartTime,
		PlannedEnd:     allocs[len(allocs)-1].EndTime,
		DayAllocations: allocs,
	}, nil
}

// hoursToDuration rounds to whole seconds so timestamps stay stable.
func hoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h*3600)) * time.Second
}
