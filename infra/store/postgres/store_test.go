package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/model"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "cellsched",
				"POSTGRES_USER":     "cellsched",
				"POSTGRES_DB":       "cellsched",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://cellsched:cellsched@%s:%s/cellsched?sslmode=disable", host, port.Port())
}

func TestStoreReplace(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Ping(ctx))

	monday := model.NewDate(2025, time.January, 6)
	so := model.ScheduledOperation{
		OperationID: "op1", JobID: "j1", CellID: "cnc",
		PlannedStart: monday.AtOffset(8*time.Hour, time.UTC),
		PlannedEnd:   monday.AddDays(1).AtOffset(12*time.Hour, time.UTC),
		DayAllocations: []model.DayAllocation{
			{OperationID: "op1", CellID: "cnc", Date: monday, HoursAllocated: 8,
				StartTime: monday.AtOffset(8*time.Hour, time.UTC), EndTime: monday.AtOffset(17*time.Hour, time.UTC)},
			{OperationID: "op1", CellID: "cnc", Date: monday.AddDays(1), HoursAllocated: 4,
				StartTime: monday.AddDays(1).AtOffset(8*time.Hour, time.UTC), EndTime: monday.AddDays(1).AtOffset(12*time.Hour, time.UTC)},
		},
	}
	rec := allocation.NewRecorder(s, nil)
	require.NoError(t, rec.Record(ctx, "r1", []model.ScheduledOperation{so}, nil))
	require.NoError(t, rec.Record(ctx, "r2", []model.ScheduledOperation{so}, nil))

	recs, err := s.Allocations(ctx, allocation.Query{CellID: "cnc"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, monday, recs[0].Date)
	assert.Equal(t, "r2", recs[1].RunID)

	p, ok, err := s.Plan(ctx, "op1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.PlannedEnd.Equal(so.PlannedEnd))

	require.NoError(t, rec.Record(ctx, "r3", nil, []string{"op1"}))
	recs, err = s.Allocations(ctx, allocation.Query{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
