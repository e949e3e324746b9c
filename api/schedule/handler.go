package schedule

import (
	"context"
	"errors"
	"net/http"

	"github.com/kilianp07/cellsched/api/internal/respond"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/pkg/export"
)

// TriggerAPI labels runs started over HTTP.
const TriggerAPI = "api"

// Runner executes one scheduling run.
type Runner interface {
	RunSchedule(ctx context.Context, trigger string) (export.Schedule, error)
}

// NewRunHandler serves POST /api/schedule/run. Operations that could not be
// planned are part of a successful response; only run level errors fail it.
func NewRunHandler(run Runner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := run.RunSchedule(r.Context(), TriggerAPI)
		var cfgErr *model.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, s)
	})
}
