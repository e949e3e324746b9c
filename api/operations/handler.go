package operations

import (
	"context"
	"net/http"

	"github.com/kilianp07/cellsched/api/internal/respond"
	"github.com/kilianp07/cellsched/core/allocation"
)

// AllocationProvider reads the persisted plan of one operation.
type AllocationProvider interface {
	OperationAllocations(ctx context.Context, operationID string) (allocation.Plan, []allocation.Record, bool, error)
}

// Response is the body of GET /api/operations/{id}/allocations.
type Response struct {
	allocation.Plan
	DayAllocations []allocation.Record `json:"day_allocations"`
}

// NewAllocationsHandler serves GET /api/operations/{id}/allocations.
func NewAllocationsHandler(p AllocationProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			respond.Error(w, http.StatusBadRequest, "operation id is required")
			return
		}
		plan, recs, ok, err := p.OperationAllocations(r.Context(), id)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			respond.Error(w, http.StatusNotFound, "operation "+id+" has no plan")
			return
		}
		if recs == nil {
			recs = []allocation.Record{}
		}
		respond.JSON(w, http.StatusOK, Response{Plan: plan, DayAllocations: recs})
	})
}
