// Package sqlite provides a single-file run store for local and CLI use.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal/migration"
	"intakegate/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store persists runs in SQLite
type Store struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies migrations. ":memory:" gives a private in-process store.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts a finished run
func (s *Store) Save(ctx context.Context, run *ports.StoredRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	records := run.Records
	if records == nil {
		records = []intake.JoinedRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	sum := ports.Summarize(run)
	_, err = s.db.ExecContext(ctx, `INSERT INTO intake_runs (
		id, created_at, fingerprint, verdict, failure_reason, join_success_rate,
		incident_sha256, consequence_sha256, report, records
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID.String(), toMillis(sum.CreatedAt), sum.Fingerprint.String(), string(sum.Verdict),
		string(sum.FailureReason), sum.JoinSuccessRate,
		sum.IncidentSHA256.String(), sum.ConsequenceSHA256.String(),
		string(reportJSON), string(recordsJSON),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves a run with its full report and joined records
func (s *Store) Get(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	var (
		rawID       string
		createdAt   int64
		reportJSON  string
		recordsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, report, records FROM intake_runs WHERE id = ?`, id.String(),
	).Scan(&rawID, &createdAt, &reportJSON, &recordsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	run := &ports.StoredRun{ID: core.RunID(rawID), CreatedAt: fromMillis(createdAt)}
	if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if err := json.Unmarshal([]byte(recordsJSON), &run.Records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return run, nil
}

type summaryRow struct {
	ports.RunSummary
	CreatedAtMillis int64 `db:"created_at_ms"`
}

// List returns run summaries, newest first
func (s *Store) List(ctx context.Context, filter ports.RunFilter) ([]ports.RunSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT
		id, created_at AS created_at_ms, fingerprint, verdict, failure_reason, join_success_rate,
		incident_sha256, consequence_sha256
	FROM intake_runs`
	args := []interface{}{}
	if filter.Verdict != "" {
		query += ` WHERE verdict = ?`
		args = append(args, string(filter.Verdict))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []summaryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	summaries := make([]ports.RunSummary, 0, len(rows))
	for _, row := range rows {
		sum := row.RunSummary
		sum.CreatedAt = fromMillis(row.CreatedAtMillis)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}
