package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	errs        []error
	panics      []any
	breadcrumbs []string
	tags        map[string]string
}

func (r *recorder) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recorder) CapturePanic(v any, tags map[string]string) {
	r.panics = append(r.panics, v)
	r.tags = tags
}
func (r *recorder) AddBreadcrumb(c, m string) { r.breadcrumbs = append(r.breadcrumbs, c+":"+m) }
func (r *recorder) Flush(time.Duration)       {}

func TestGlobalMonitor(t *testing.T) {
	rec := &recorder{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })
	Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"run_id": "r1"})
	AddBreadcrumb("schedule", "run started")
	Flush(time.Millisecond)

	require.Len(t, rec.errs, 1)
	assert.Equal(t, "r1", rec.tags["run_id"])
	assert.Equal(t, []string{"schedule:run started"}, rec.breadcrumbs)
}

func TestGuard(t *testing.T) {
	rec := &recorder{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })

	err := Guard(map[string]string{"trigger": "cron"}, func() error { panic("bad input") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")
	assert.Equal(t, []any{"bad input"}, rec.panics)
	assert.Equal(t, "cron", rec.tags["trigger"])

	want := errors.New("plain")
	assert.Equal(t, want, Guard(nil, func() error { return want }))
}
