// Package postgres stores plans and day allocations in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/model"
)

// replaceLockKey serialises concurrent Replace calls across processes.
const replaceLockKey int64 = 0x63656c6c

const schemaSQL = `
CREATE TABLE IF NOT EXISTS operation_plans (
	operation_id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	cell_id TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	planned_start TIMESTAMPTZ NOT NULL,
	planned_end TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS day_allocations (
	operation_id TEXT NOT NULL,
	job_id TEXT NOT NULL,
	cell_id TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	day DATE NOT NULL,
	hours DOUBLE PRECISION NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_day_allocations_op ON day_allocations(operation_id);
CREATE INDEX IF NOT EXISTS idx_day_allocations_cell_day ON day_allocations(cell_id, day);
`

// Store implements allocation.Store on a pgx connection pool.
type Store struct{ pool *pgxpool.Pool }

var _ allocation.Store = (*Store)(nil)

// Open connects to databaseURL and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Replace overwrites the plans of the batch operations. A transaction level
// advisory lock makes concurrent runs persist one after the other.
func (s *Store) Replace(ctx context.Context, b allocation.Batch) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, replaceLockKey); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		ids := b.OperationIDs()
		if len(ids) > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM day_allocations WHERE operation_id = ANY($1)`, ids); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM operation_plans WHERE operation_id = ANY($1)`, ids); err != nil {
				return err
			}
		}

		batch := &pgx.Batch{}
		for _, p := range b.Plans {
			batch.Queue(`INSERT INTO operation_plans (operation_id, job_id, cell_id, run_id, planned_start, planned_end)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				p.OperationID, p.JobID, p.CellID, p.RunID, p.PlannedStart, p.PlannedEnd)
		}
		for _, r := range b.Records {
			batch.Queue(`INSERT INTO day_allocations (operation_id, job_id, cell_id, run_id, day, hours, start_time, end_time)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				r.OperationID, r.JobID, r.CellID, r.RunID, r.Date.Time, r.Hours, r.StartTime, r.EndTime)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Allocations returns records matching q.
func (s *Store) Allocations(ctx context.Context, q allocation.Query) ([]allocation.Record, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !q.From.IsZero() {
		where = append(where, "day >= "+arg(q.From.Time))
	}
	if !q.To.IsZero() {
		where = append(where, "day <= "+arg(q.To.Time))
	}
	if q.CellID != "" {
		where = append(where, "cell_id = "+arg(q.CellID))
	}
	if q.OperationID != "" {
		where = append(where, "operation_id = "+arg(q.OperationID))
	}
	query := `SELECT operation_id, job_id, cell_id, run_id, day, hours, start_time, end_time FROM day_allocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY day, cell_id, start_time, operation_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []allocation.Record
	for rows.Next() {
		var (
			r   allocation.Record
			day time.Time
		)
		if err := rows.Scan(&r.OperationID, &r.JobID, &r.CellID, &r.RunID, &day, &r.Hours, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		r.Date = model.DateOf(day)
		r.StartTime = r.StartTime.UTC()
		r.EndTime = r.EndTime.UTC()
		res = append(res, r)
	}
	return res, rows.Err()
}

// Plan returns the stored plan of an operation.
func (s *Store) Plan(ctx context.Context, operationID string) (allocation.Plan, bool, error) {
	var p allocation.Plan
	err := s.pool.QueryRow(ctx, `SELECT operation_id, job_id, cell_id, run_id, planned_start, planned_end
		FROM operation_plans WHERE operation_id = $1`, operationID).
		Scan(&p.OperationID, &p.JobID, &p.CellID, &p.RunID, &p.PlannedStart, &p.PlannedEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return allocation.Plan{}, false, nil
	}
	if err != nil {
		return allocation.Plan{}, false, err
	}
	return p, true, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
