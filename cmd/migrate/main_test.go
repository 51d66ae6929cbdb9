package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/adapters/sqlite"
	"intakegate/domain/intake"
	"intakegate/internal/testkit"
	"intakegate/ports"
)

func TestImportRuns(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	nested := filepath.Join(dir, "2024", "spring")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	run := testkit.StoredRun(intake.VerdictProceed, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	// a `run --out` file carries no created_at; the report timestamp stands in
	data, err := json.Marshal(map[string]any{"run_id": run.ID, "report": run.Report, "records": run.Records, "persisted": false})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(nested, "report.json"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{"run_id":"x"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	migrated, skipped, err := importRuns(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)
	assert.Equal(t, 2, skipped)

	got, err := store.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.True(t, run.Report.GeneratedAt.Equal(got.CreatedAt))
	assert.Len(t, got.Records, len(run.Records))

	// importing again skips the duplicate
	migrated, skipped, err = importRuns(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
	assert.Equal(t, 3, skipped)

	summaries, err := store.List(context.Background(), ports.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestImportRuns_MissingDir(t *testing.T) {
	_, _, err := importRuns(context.Background(), nil, filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
