package repository

import (
	"context"
	"fmt"
)

var schema = map[Dialect][]string{
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS runs (
			id           UUID PRIMARY KEY,
			input_labels TEXT NOT NULL,
			output_dir   TEXT NOT NULL,
			seed         TEXT NOT NULL,
			train_ratio  DOUBLE PRECISION NOT NULL,
			status       TEXT NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL,
			finished_at  TIMESTAMPTZ,
			valid        INTEGER NOT NULL DEFAULT 0,
			invalid      INTEGER NOT NULL DEFAULT 0,
			processed    INTEGER NOT NULL DEFAULT 0,
			failed       INTEGER NOT NULL DEFAULT 0,
			error        TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			id         BIGSERIAL PRIMARY KEY,
			run_id     UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			line       INTEGER NOT NULL,
			image_ref  TEXT NOT NULL,
			text       TEXT NOT NULL,
			split      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			output_rel TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS samples_run_id_idx ON samples(run_id)`,
	},
	DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			input_labels TEXT NOT NULL,
			output_dir   TEXT NOT NULL,
			seed         TEXT NOT NULL,
			train_ratio  REAL NOT NULL,
			status       TEXT NOT NULL,
			started_at   TIMESTAMP NOT NULL,
			finished_at  TIMESTAMP,
			valid        INTEGER NOT NULL DEFAULT 0,
			invalid      INTEGER NOT NULL DEFAULT 0,
			processed    INTEGER NOT NULL DEFAULT 0,
			failed       INTEGER NOT NULL DEFAULT 0,
			error        TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			line       INTEGER NOT NULL,
			image_ref  TEXT NOT NULL,
			text       TEXT NOT NULL,
			split      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			output_rel TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS samples_run_id_idx ON samples(run_id)`,
	},
}

// Migrate creates the runs and samples tables if missing.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema[d.Dialect] {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			d.logger.Error("catalog migrate failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Debug("catalog schema ready", "dialect", d.Dialect)
	return nil
}
