// Package store keeps a history of bootstrap runs in SQLite so failures can
// be inspected after the shell exits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("boot run not found")

// Store provides SQLite-backed boot history.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and runs migrations.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite has a single writer; ":memory:" also needs one shared connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Boot history store initialized.", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun persists run with its stages and preload failures. An empty ID
// is filled in.
func (s *Store) RecordRun(ctx context.Context, run *BootRun) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	var fatal sql.NullString
	if run.Fatal != nil {
		raw, err := json.Marshal(run.Fatal)
		if err != nil {
			return fmt.Errorf("failed to encode fatal record: %w", err)
		}
		fatal = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRun = `
		INSERT INTO boot_runs (id, base_dir, started_at, finished_at, outcome, fatal_record)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.BaseDir, toMillis(run.StartedAt), toMillis(run.FinishedAt), run.Outcome, fatal,
	); err != nil {
		return fmt.Errorf("failed to insert boot run: %w", err)
	}

	const insertStage = `
		INSERT INTO stage_results (run_id, seq, stage, state, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, st := range run.Stages {
		if _, err := tx.ExecContext(ctx, insertStage,
			run.ID, i, st.Name, st.State, nullString(st.Error), toMillis(st.StartedAt), toMillis(st.FinishedAt),
		); err != nil {
			return fmt.Errorf("failed to insert stage result %q: %w", st.Name, err)
		}
	}

	const insertFailure = `
		INSERT INTO preload_failures (run_id, batch, file, cause) VALUES (?, ?, ?, ?)
	`
	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, insertFailure, run.ID, f.Batch, f.File, f.Cause); err != nil {
			return fmt.Errorf("failed to insert preload failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit boot run: %w", err)
	}
	return nil
}

// GetRun loads one run with its stages and failures.
func (s *Store) GetRun(ctx context.Context, id string) (*BootRun, error) {
	const query = `
		SELECT id, base_dir, started_at, finished_at, outcome, fatal_record
		FROM boot_runs WHERE id = ?
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query boot run: %w", err)
	}
	if err := s.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first, without details.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*BootRun, error) {
	const query = `
		SELECT id, base_dir, started_at, finished_at, outcome, fatal_record
		FROM boot_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query boot runs: %w", err)
	}
	defer rows.Close()

	var runs []*BootRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boot run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) loadDetails(ctx context.Context, run *BootRun) error {
	const stagesQuery = `
		SELECT stage, state, error, started_at, finished_at
		FROM stage_results WHERE run_id = ? ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, stagesQuery, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query stage results: %w", err)
	}
	for rows.Next() {
		var (
			st                StageRecord
			errText           sql.NullString
			started, finished sql.NullInt64
		)
		if err := rows.Scan(&st.Name, &st.State, &errText, &started, &finished); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan stage result: %w", err)
		}
		st.Error = errText.String
		st.StartedAt = fromMillis(started.Int64)
		st.FinishedAt = fromMillis(finished.Int64)
		run.Stages = append(run.Stages, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const failuresQuery = `
		SELECT batch, file, cause FROM preload_failures WHERE run_id = ? ORDER BY id
	`
	rows, err = s.db.QueryContext(ctx, failuresQuery, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query preload failures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f PreloadFailure
		if err := rows.Scan(&f.Batch, &f.File, &f.Cause); err != nil {
			return fmt.Errorf("failed to scan preload failure: %w", err)
		}
		run.Failures = append(run.Failures, f)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*BootRun, error) {
	var (
		run               BootRun
		started, finished int64
		fatal             sql.NullString
	)
	if err := row.Scan(&run.ID, &run.BaseDir, &started, &finished, &run.Outcome, &fatal); err != nil {
		return nil, err
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	if fatal.Valid {
		var rec booterr.Record
		if err := json.Unmarshal([]byte(fatal.String), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode fatal record of %s: %w", run.ID, err)
		}
		run.Fatal = &rec
	}
	return &run, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
