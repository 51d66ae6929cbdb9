package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal/testkit"
	"intakegate/ports"
)

func newMock(t *testing.T) (ports.RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(sqlx.NewDb(db, "postgres")), mock
}

var createdAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRunRepository_Save(t *testing.T) {
	repo, mock := newMock(t)
	run := testkit.StoredRun(intake.VerdictHalt, createdAt)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO intake_runs")).
		WithArgs(
			run.ID, createdAt, run.Report.Fingerprint, intake.VerdictHalt, intake.FailureJoinThresholdNotMet,
			run.Report.JoinSuccessRate,
			run.Report.Files.Incident.SHA256, run.Report.Files.Consequence.SHA256,
			sqlmock.AnyArg(), []byte("[]"),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_Get(t *testing.T) {
	repo, mock := newMock(t)
	run := testkit.StoredRun(intake.VerdictProceed, createdAt)
	reportJSON, err := json.Marshal(run.Report)
	require.NoError(t, err)
	recordsJSON, err := json.Marshal(run.Records)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, report, records FROM intake_runs WHERE id = $1")).
		WithArgs(run.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "report", "records"}).
			AddRow(string(run.ID), createdAt, reportJSON, recordsJSON))

	got, err := repo.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, intake.VerdictProceed, got.Report.Verdict)
	assert.Equal(t, run.Report.Fingerprint, got.Report.Fingerprint)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 2400, got.Records[0].Minutes)
	assert.Equal(t, "2024-01-08", got.Records[0].Consequence.StartDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_GetNotFound(t *testing.T) {
	repo, mock := newMock(t)
	id := core.NewRunID()

	mock.ExpectQuery(regexp.QuoteMeta("FROM intake_runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "report", "records"}))

	_, err := repo.Get(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_List(t *testing.T) {
	columns := []string{
		"id", "created_at", "fingerprint", "verdict", "failure_reason", "join_success_rate",
		"incident_sha256", "consequence_sha256",
	}

	t.Run("verdict filter and default limit", func(t *testing.T) {
		repo, mock := newMock(t)
		id := core.NewRunID()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE verdict = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
			WithArgs(intake.VerdictHalt, defaultListLimit, 0).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(string(id), createdAt, "abc", "halt", "JoinThresholdNotMet", 0.94, "i", "c"))

		got, err := repo.List(context.Background(), ports.RunFilter{Verdict: intake.VerdictHalt})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
		assert.Equal(t, intake.FailureJoinThresholdNotMet, got[0].FailureReason)
		require.NotNil(t, got[0].JoinSuccessRate)
		assert.InDelta(t, 0.94, *got[0].JoinSuccessRate, 1e-12)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit is capped and empty result is not nil", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM intake_runs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
			WithArgs(maxListLimit, 10).
			WillReturnRows(sqlmock.NewRows(columns))

		got, err := repo.List(context.Background(), ports.RunFilter{Limit: 10000, Offset: 10})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
