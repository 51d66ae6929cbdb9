package migration

import (
	"context"
	"fmt"

	"intakegate/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run store schema for postgres or sqlite
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// dialect holds the statements that differ between drivers
type dialect struct {
	runsTable string
	indexes   []string
}

var dialects = map[string]dialect{
	"postgres": {
		runsTable: `
			CREATE TABLE IF NOT EXISTS intake_runs (
				id UUID PRIMARY KEY,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				fingerprint VARCHAR(64) NOT NULL,
				verdict VARCHAR(16) NOT NULL,
				failure_reason VARCHAR(64) NOT NULL DEFAULT '',
				join_success_rate DOUBLE PRECISION,
				incident_sha256 VARCHAR(64) NOT NULL DEFAULT '',
				consequence_sha256 VARCHAR(64) NOT NULL DEFAULT '',
				report JSONB NOT NULL,
				records JSONB NOT NULL DEFAULT '[]'::jsonb
			)
		`,
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_created_at ON intake_runs(created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_verdict ON intake_runs(verdict)`,
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_fingerprint ON intake_runs(fingerprint)`,
		},
	},
	"sqlite": {
		runsTable: `
			CREATE TABLE IF NOT EXISTS intake_runs (
				id TEXT PRIMARY KEY,
				created_at INTEGER NOT NULL,
				fingerprint TEXT NOT NULL,
				verdict TEXT NOT NULL,
				failure_reason TEXT NOT NULL DEFAULT '',
				join_success_rate REAL,
				incident_sha256 TEXT NOT NULL DEFAULT '',
				consequence_sha256 TEXT NOT NULL DEFAULT '',
				report TEXT NOT NULL,
				records TEXT NOT NULL DEFAULT '[]'
			)
		`,
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_created_at ON intake_runs(created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_verdict ON intake_runs(verdict)`,
			`CREATE INDEX IF NOT EXISTS idx_intake_runs_fingerprint ON intake_runs(fingerprint)`,
		},
	},
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	d, ok := dialects[db.DriverName()]
	if !ok {
		return errors.ConfigInvalid(fmt.Sprintf("no migrations for driver %q", db.DriverName()))
	}

	if err := r.createRunsTable(ctx, db, d); err != nil {
		return errors.Wrap(errors.DatabaseError("create table", err), "failed to create intake_runs table")
	}

	if err := r.createIndexes(ctx, db, d); err != nil {
		return errors.Wrap(errors.DatabaseError("create index", err), "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, d.runsTable)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB, d dialect) error {
	for _, idxSQL := range d.indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			return fmt.Errorf("%s: %w", idxSQL, err)
		}
	}
	return nil
}
