// Package api exposes the scheduler over HTTP.
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/kilianp07/cellsched/api/capacity"
	"github.com/kilianp07/cellsched/api/internal/respond"
	"github.com/kilianp07/cellsched/api/operations"
	"github.com/kilianp07/cellsched/api/runs"
	"github.com/kilianp07/cellsched/api/schedule"
	"github.com/kilianp07/cellsched/core/runlog"
)

// Backend is everything the HTTP API needs from the service.
type Backend interface {
	capacity.SummaryProvider
	operations.AllocationProvider
	schedule.Runner
}

// NewMux registers every endpoint. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewMux(b Backend, runLog runlog.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/capacity/summary", RequireBearer(token, capacity.NewSummaryHandler(b)))
	mux.Handle("GET /api/operations/{id}/allocations", RequireBearer(token, operations.NewAllocationsHandler(b)))
	mux.Handle("POST /api/schedule/run", RequireBearer(token, schedule.NewRunHandler(b)))
	if runLog != nil {
		mux.Handle("GET /api/runs", RequireBearer(token, runs.NewLogHandler(runLog)))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// RequireBearer rejects requests without the bearer token. An empty token
// disables the check.
func RequireBearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
