package store

import (
	"context"
	"fmt"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
)

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
			CREATE TABLE boot_runs (
				id TEXT PRIMARY KEY,
				base_dir TEXT NOT NULL,
				started_at INTEGER NOT NULL,
				finished_at INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				fatal_record TEXT
			);

			CREATE TABLE stage_results (
				run_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				stage TEXT NOT NULL,
				state TEXT NOT NULL,
				error TEXT,
				started_at INTEGER,
				finished_at INTEGER,
				PRIMARY KEY (run_id, seq),
				FOREIGN KEY (run_id) REFERENCES boot_runs(id)
			);

			CREATE TABLE preload_failures (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL,
				batch TEXT NOT NULL,
				file TEXT NOT NULL,
				cause TEXT NOT NULL,
				FOREIGN KEY (run_id) REFERENCES boot_runs(id)
			);

			CREATE INDEX idx_boot_runs_started ON boot_runs(started_at);
			CREATE INDEX idx_preload_failures_run ON preload_failures(run_id);
		`,
	},
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	const createMigrationsTable = `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	logger.Debug("Current history schema version.", "version", current)

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
		logger.Debug("Applied history migration.", "version", m.version)
	}
	return nil
}
