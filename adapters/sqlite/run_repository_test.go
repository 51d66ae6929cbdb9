package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal/testkit"
	"intakegate/ports"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := testkit.StoredRun(intake.VerdictProceed, created)

	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, run.Report.Fingerprint, got.Report.Fingerprint)
	assert.Equal(t, run.Report.Files.Incident.SHA256, got.Report.Files.Incident.SHA256)
	assert.Equal(t, intake.Assumptions(), got.Report.Assumptions)
	require.Len(t, got.Records, 1)
	assert.Equal(t, run.Records[0].Consequence.EndDate, got.Records[0].Consequence.EndDate)
	assert.Equal(t, intake.MinutesDateDerived, got.Records[0].MinutesMethod)

	assert.Error(t, store.Save(ctx, run), "runs are immutable")
}

func TestStore_HaltedRunKeepsFailure(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := testkit.StoredRun(intake.VerdictHalt, time.Now().UTC())
	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Report.Failure)
	assert.Equal(t, intake.FailureJoinThresholdNotMet, got.Report.Failure.Reason)
	assert.Empty(t, got.Records)
}

func TestStore_GetNotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.Get(context.Background(), core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestStore_List(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var ids []core.RunID
	for i, verdict := range []intake.Verdict{intake.VerdictProceed, intake.VerdictHalt, intake.VerdictProceed} {
		run := testkit.StoredRun(verdict, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	all, err := store.List(ctx, ports.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []core.RunID{ids[2], ids[1], ids[0]}, []core.RunID{all[0].ID, all[1].ID, all[2].ID})
	assert.True(t, base.Add(2*time.Hour).Equal(all[0].CreatedAt))

	halted, err := store.List(ctx, ports.RunFilter{Verdict: intake.VerdictHalt})
	require.NoError(t, err)
	require.Len(t, halted, 1)
	assert.Equal(t, ids[1], halted[0].ID)
	assert.Equal(t, intake.FailureJoinThresholdNotMet, halted[0].FailureReason)
	require.NotNil(t, halted[0].JoinSuccessRate)
	assert.InDelta(t, 0.94, *halted[0].JoinSuccessRate, 1e-12)

	page, err := store.List(ctx, ports.RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	empty, err := store.List(ctx, ports.RunFilter{Offset: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	require.NoError(t, err)
	run := testkit.StoredRun(intake.VerdictProceed, time.Now().UTC())
	require.NoError(t, store.Save(ctx, run))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	_, err = reopened.Get(ctx, run.ID)
	assert.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}
