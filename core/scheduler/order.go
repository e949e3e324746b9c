package scheduler

import (
	"cmp"
	"slices"

	"github.com/kilianp07/cellsched/core/model"
)

// SortJobs orders jobs by effective due date, jobs without one last, ties
// broken by ID. Duplicate IDs keep their first occurrence.
func SortJobs(jobs []model.Job) []model.Job {
	seen := make(map[string]bool, len(jobs))
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if seen[j.ID] {
			continue
		}
		seen[j.ID] = true
		out = append(out, j)
	}
	slices.SortStableFunc(out, func(a, b model.Job) int {
		da, oka := a.EffectiveDueDate()
		db, okb := b.EffectiveDueDate()
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case oka && okb && !da.Equal(db):
			return da.Compare(db)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// groupOperations buckets operations per job in routing order.
func groupOperations(ops []model.Operation) map[string][]model.Operation {
	byJob := make(map[string][]model.Operation)
	for _, op := range ops {
		byJob[op.JobID] = append(byJob[op.JobID], op)
	}
	for id := range byJob {
		slices.SortStableFunc(byJob[id], func(a, b model.Operation) int {
			if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return byJob
}
