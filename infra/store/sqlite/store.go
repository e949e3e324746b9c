// Package sqlite stores plans and day allocations in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS operation_plans (
    operation_id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL,
    cell_id TEXT NOT NULL,
    run_id TEXT,
    planned_start TEXT NOT NULL,
    planned_end TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS day_allocations (
    operation_id TEXT NOT NULL,
    job_id TEXT NOT NULL,
    cell_id TEXT NOT NULL,
    run_id TEXT,
    day TEXT NOT NULL,
    hours REAL NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS day_allocations_op ON day_allocations(operation_id);
CREATE INDEX IF NOT EXISTS day_allocations_cell_day ON day_allocations(cell_id, day);`

// Store implements allocation.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ allocation.Store = (*Store)(nil)

// New opens or creates the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Replace deletes the previous plans of the batch operations and inserts the
// new ones in one transaction.
func (s *Store) Replace(ctx context.Context, b allocation.Batch) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, id := range b.OperationIDs() {
		if _, err = tx.ExecContext(ctx, `DELETE FROM day_allocations WHERE operation_id = ?`, id); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM operation_plans WHERE operation_id = ?`, id); err != nil {
			return err
		}
	}
	for _, p := range b.Plans {
		if _, err = tx.ExecContext(ctx, `INSERT INTO operation_plans
            (operation_id, job_id, cell_id, run_id, planned_start, planned_end)
            VALUES (?, ?, ?, ?, ?, ?)`,
			p.OperationID, p.JobID, p.CellID, p.RunID, formatTime(p.PlannedStart), formatTime(p.PlannedEnd)); err != nil {
			return err
		}
	}
	for _, r := range b.Records {
		if _, err = tx.ExecContext(ctx, `INSERT INTO day_allocations
            (operation_id, job_id, cell_id, run_id, day, hours, start_time, end_time)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.OperationID, r.JobID, r.CellID, r.RunID, r.Date.String(), r.Hours,
			formatTime(r.StartTime), formatTime(r.EndTime)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Allocations returns records matching q.
func (s *Store) Allocations(ctx context.Context, q allocation.Query) ([]allocation.Record, error) {
	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		where = append(where, `day >= ?`)
		args = append(args, q.From.String())
	}
	if !q.To.IsZero() {
		where = append(where, `day <= ?`)
		args = append(args, q.To.String())
	}
	if q.CellID != "" {
		where = append(where, `cell_id = ?`)
		args = append(args, q.CellID)
	}
	if q.OperationID != "" {
		where = append(where, `operation_id = ?`)
		args = append(args, q.OperationID)
	}
	query := `SELECT operation_id, job_id, cell_id, COALESCE(run_id, ''), day, hours, start_time, end_time FROM day_allocations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []allocation.Record
	for rows.Next() {
		var (
			r               allocation.Record
			day, start, end string
		)
		if err := rows.Scan(&r.OperationID, &r.JobID, &r.CellID, &r.RunID, &day, &r.Hours, &start, &end); err != nil {
			return nil, err
		}
		if r.Date, err = model.ParseDate(day); err != nil {
			return nil, err
		}
		if r.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if r.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	allocation.SortRecords(res)
	return res, nil
}

// Plan returns the stored plan of an operation.
func (s *Store) Plan(ctx context.Context, operationID string) (allocation.Plan, bool, error) {
	var (
		p          allocation.Plan
		start, end string
	)
	err := s.db.QueryRowContext(ctx, `SELECT operation_id, job_id, cell_id, COALESCE(run_id, ''), planned_start, planned_end
        FROM operation_plans WHERE operation_id = ?`, operationID).
		Scan(&p.OperationID, &p.JobID, &p.CellID, &p.RunID, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return allocation.Plan{}, false, nil
	}
	if err != nil {
		return allocation.Plan{}, false, err
	}
	if p.PlannedStart, err = parseTime(start); err != nil {
		return allocation.Plan{}, false, err
	}
	if p.PlannedEnd, err = parseTime(end); err != nil {
		return allocation.Plan{}, false, err
	}
	return p, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }
