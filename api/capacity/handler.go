package capacity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kilianp07/cellsched/api/internal/respond"
	"github.com/kilianp07/cellsched/core/calendar"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/summary"
)

// MaxRangeDays bounds one summary request.
const MaxRangeDays = 366

// SummaryProvider computes capacity summaries over persisted allocations.
type SummaryProvider interface {
	Summary(ctx context.Context, from, to model.Date, cells []string) ([]model.CapacitySummary, error)
}

// Response is the body of GET /api/capacity/summary.
type Response struct {
	From      model.Date              `json:"from"`
	To        model.Date              `json:"to"`
	Summaries []model.CapacitySummary `json:"summaries"`
	Stats     []summary.CellStats     `json:"stats"`
}

// NewSummaryHandler serves GET /api/capacity/summary?from=YYYY-MM-DD&to=YYYY-MM-DD&cell=a,b.
func NewSummaryHandler(p SummaryProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseRange(r)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		var cells []string
		if c := r.URL.Query().Get("cell"); c != "" {
			for _, id := range strings.Split(c, ",") {
				if id = strings.TrimSpace(id); id != "" {
					cells = append(cells, id)
				}
			}
		}
		rows, err := p.Summary(r.Context(), from, to, cells)
		switch {
		case errors.Is(err, calendar.ErrUnknownCell):
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rows == nil {
			rows = []model.CapacitySummary{}
		}
		respond.JSON(w, http.StatusOK, Response{From: from, To: to, Summaries: rows, Stats: summary.Stats(rows)})
	})
}

func parseRange(r *http.Request) (model.Date, model.Date, error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return model.Date{}, model.Date{}, fmt.Errorf("from and to are required (YYYY-MM-DD)")
	}
	from, err := model.ParseDate(q.Get("from"))
	if err != nil {
		return model.Date{}, model.Date{}, fmt.Errorf("from: %w", err)
	}
	to, err := model.ParseDate(q.Get("to"))
	if err != nil {
		return model.Date{}, model.Date{}, fmt.Errorf("to: %w", err)
	}
	if to.Before(from.Time) {
		return model.Date{}, model.Date{}, fmt.Errorf("to %s is before from %s", to, from)
	}
	if to.Ordinal()-from.Ordinal() >= MaxRangeDays {
		return model.Date{}, model.Date{}, fmt.Errorf("range exceeds %d days", MaxRangeDays)
	}
	return from, to, nil
}
