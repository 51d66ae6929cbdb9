package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/ports"

	"github.com/jmoiron/sqlx"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// runRepository implements ports.RunRepository on postgres
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Save inserts a finished run. Runs are immutable, so a second save of the same ID fails.
func (r *runRepository) Save(ctx context.Context, run *ports.StoredRun) error {
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	records := run.Records
	if records == nil {
		records = []intake.JoinedRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	s := ports.Summarize(run)
	query := `INSERT INTO intake_runs (
		id, created_at, fingerprint, verdict, failure_reason, join_success_rate,
		incident_sha256, consequence_sha256, report, records
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.CreatedAt, s.Fingerprint, s.Verdict, s.FailureReason, s.JoinSuccessRate,
		s.IncidentSHA256, s.ConsequenceSHA256, reportJSON, recordsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves a run with its full report and joined records
func (r *runRepository) Get(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	query := `SELECT id, created_at, report, records FROM intake_runs WHERE id = $1`

	var run ports.StoredRun
	var reportJSON, recordsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&run.ID, &run.CreatedAt, &reportJSON, &recordsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	if len(recordsJSON) > 0 {
		if err := json.Unmarshal(recordsJSON, &run.Records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
	}
	return &run, nil
}

// List returns run summaries, newest first
func (r *runRepository) List(ctx context.Context, filter ports.RunFilter) ([]ports.RunSummary, error) {
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
		id, created_at, fingerprint, verdict, failure_reason, join_success_rate,
		incident_sha256, consequence_sha256
	FROM intake_runs`
	args := []interface{}{}
	if filter.Verdict != "" {
		args = append(args, filter.Verdict)
		query += fmt.Sprintf(" WHERE verdict = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	summaries := make([]ports.RunSummary, 0) // Initialize as empty slice, not nil
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return summaries, nil
}
