package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakegate/adapters/sqlite"
	"intakegate/app"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/internal/config"
	"intakegate/internal/testkit"
	"intakegate/ports"
)

func browser(t *testing.T, store *sqlite.Store) RunBrowser {
	t.Helper()
	svc, err := app.NewIntakeServiceFromConfig(config.Default(), store, nil)
	require.NoError(t, err)
	return svc
}

func seeded(t *testing.T) (RunBrowser, *ports.StoredRun, *ports.StoredRun) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	halt := testkit.StoredRun(intake.VerdictHalt, base)
	proceed := testkit.StoredRun(intake.VerdictProceed, base.Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), halt))
	require.NoError(t, store.Save(context.Background(), proceed))
	return browser(t, store), halt, proceed
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex(t *testing.T) {
	store, halt, proceed := seeded(t)
	page, err := NewApp(store, nil, nil)
	require.NoError(t, err)

	rec := get(t, page, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, halt.ID.String())
	assert.Contains(t, body, proceed.ID.String())
	assert.Contains(t, body, "94.00%")
	assert.Contains(t, body, string(intake.FailureJoinThresholdNotMet))
	assert.Less(t, strings.Index(body, proceed.ID.String()), strings.Index(body, halt.ID.String()), "newest first")

	rec = get(t, page, "/?verdict=halt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), proceed.ID.String())

	assert.Equal(t, http.StatusBadRequest, get(t, page, "/?verdict=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, page, "/?offset=x").Code)
}

func TestIndex_Empty(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ui, err := NewApp(browser(t, store), nil, nil)
	require.NoError(t, err)

	rec := get(t, ui, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No runs recorded yet.")
}

func TestRunPages(t *testing.T) {
	store, halt, _ := seeded(t)
	page, err := NewApp(store, nil, nil)
	require.NoError(t, err)

	rec := get(t, page, "/runs/"+halt.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = get(t, page, "/runs/"+halt.ID.String()+"/report.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "| Join success rate | 94.00% (gate 95%) |")

	assert.Equal(t, http.StatusNotFound, get(t, page, "/runs/"+core.NewRunID().String()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, page, "/runs/nope").Code)
}

func TestMountsAPI(t *testing.T) {
	store, _, _ := seeded(t)
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Path", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	})
	page, err := NewApp(store, api, nil)
	require.NoError(t, err)

	rec := get(t, page, "/api/v1/runs")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/api/v1/runs", rec.Header().Get("X-Path"))

	assert.Equal(t, http.StatusTeapot, get(t, page, "/healthz").Code)
}
