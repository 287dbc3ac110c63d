package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates that no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Begin records a new running run started by startedBy (manual, watch, schedule).
func (s *Store) Begin(ctx context.Context, startedBy string) (*Run, error) {
	startedBy = strings.TrimSpace(startedBy)
	if startedBy == "" {
		startedBy = "manual"
	}
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
		StartedBy: startedBy,
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO runs (id, started_at, status, started_by) VALUES (?, ?, ?, ?)",
			run.ID, run.StartedAt.Format(timeLayout), string(run.Status), run.StartedBy,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// Finish closes run with the outcome of runErr and the relations it wrote.
func (s *Store) Finish(ctx context.Context, run *Run, runErr error, tables []TableRecord) error {
	if run == nil {
		return errors.New("finish run: nil run")
	}
	run.FinishedAt = time.Now().UTC()
	run.Status = StatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	run.Tables = append([]TableRecord(nil), tables...)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			"UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?",
			run.FinishedAt.Format(timeLayout), string(run.Status), run.Error, run.ID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
		}
		for i, t := range run.Tables {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO run_tables (run_id, position, relation, path, row_count, byte_count) VALUES (?, ?, ?, ?, ?, ?)",
				run.ID, i, t.Relation, t.Path, t.Rows, t.Bytes,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT id, started_at, finished_at, status, started_by, error FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		tables, err := s.tables(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Tables = tables
	}
	return runs, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, status, started_by, error FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	tables, err := s.tables(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Tables = tables
	return &run, nil
}

func (s *Store) tables(ctx context.Context, runID string) ([]TableRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT relation, path, row_count, byte_count FROM run_tables WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("list run tables: %w", err)
	}
	defer rows.Close()

	var out []TableRecord
	for rows.Next() {
		var t TableRecord
		if err := rows.Scan(&t.Relation, &t.Path, &t.Rows, &t.Bytes); err != nil {
			return nil, fmt.Errorf("scan run table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		status   string
	)
	if err := sc.Scan(&run.ID, &started, &finished, &status, &run.StartedBy, &run.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid && finished.String != "" {
		if run.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return run, nil
}
