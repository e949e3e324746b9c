package runs

import (
	"net/http"
	"time"

	"github.com/kilianp07/cellsched/api/internal/respond"
	"github.com/kilianp07/cellsched/core/runlog"
)

// NewLogHandler returns an HTTP handler exposing run logs via GET /api/runs.
func NewLogHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := runlog.Query{
			RunID:       r.URL.Query().Get("run_id"),
			OperationID: r.URL.Query().Get("operation_id"),
		}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		entries, err := store.Query(r.Context(), q)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []runlog.Entry{}
		}
		respond.JSON(w, http.StatusOK, entries)
	})
}
