package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
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

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, withStore bool) *gin.Engine {
	t.Helper()
	var runs ports.RunRepository
	if withStore {
		store, err := sqlite.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		runs = store
	}
	svc, err := app.NewIntakeServiceFromConfig(config.Default(), runs, nil)
	require.NoError(t, err)
	return NewRouter(NewRunHandler(svc, 1<<20, nil), nil)
}

// upload builds a multipart body with both files and optional form fields
func upload(t *testing.T, incident, consequence string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, path := range map[string]string{"incident": incident, "consequence": consequence} {
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		part, err := w.CreateFormFile(field, filepath.Base(path))
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func do(router http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func weeks(keys []string) []testkit.Consequence {
	cs := make([]testkit.Consequence, len(keys))
	for i, k := range keys {
		cs[i] = testkit.Week(k)
	}
	return cs
}

func proposeDraft(t *testing.T, router http.Handler, incident, consequence string) []intake.Confirmation {
	t.Helper()
	body, ct := upload(t, incident, consequence, nil)
	rec := do(router, http.MethodPost, "/api/v1/proposals", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var set app.ProposalSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Files, 2)
	assert.Equal(t, "incidents.csv", set.Files[0].File.Name)
	for i := range set.Draft {
		set.Draft[i].ConfirmedBy = "api-test"
	}
	return set.Draft
}

func TestHealthz(t *testing.T) {
	rec := do(newRouter(t, false), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunLifecycle(t *testing.T) {
	router := newRouter(t, true)
	keys := testkit.Keys("INC", 20)
	incident, consequence := testkit.WriteSISPair(t, keys, weeks(keys)...)

	draft := proposeDraft(t, router, incident, consequence)
	confirmations, err := json.Marshal(draft)
	require.NoError(t, err)

	body, ct := upload(t, incident, consequence, map[string]string{"confirmations": string(confirmations)})
	rec := do(router, http.MethodPost, "/api/v1/runs", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res app.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, intake.VerdictProceed, res.Report.Verdict)
	assert.Len(t, res.Records, 20)
	assert.True(t, res.Persisted)

	rec = do(router, http.MethodGet, "/api/v1/runs/"+res.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored ports.StoredRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, res.Report.Fingerprint, stored.Report.Fingerprint)

	rec = do(router, http.MethodGet, "/api/v1/runs?verdict=proceed&limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []ports.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, res.ID, list.Runs[0].ID)
}

func TestCreateRun_HaltIs422(t *testing.T) {
	router := newRouter(t, false)
	keys := testkit.Keys("INC", 100)
	incident, consequence := testkit.WriteSISPair(t, keys, weeks(keys[:94])...)
	confirmations, err := json.Marshal(proposeDraft(t, router, incident, consequence))
	require.NoError(t, err)

	body, ct := upload(t, incident, consequence, map[string]string{"confirmations": string(confirmations)})
	rec := do(router, http.MethodPost, "/api/v1/runs", body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var res app.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Report.Failure)
	assert.Equal(t, intake.FailureJoinThresholdNotMet, res.Report.Failure.Reason)
	assert.Empty(t, res.Records)
	assert.False(t, res.Persisted)
}

func TestCreateRun_BadRequests(t *testing.T) {
	router := newRouter(t, false)
	keys := testkit.Keys("INC", 3)
	incident, consequence := testkit.WriteSISPair(t, keys, weeks(keys)...)

	body, ct := upload(t, incident, "", nil)
	rec := do(router, http.MethodPost, "/api/v1/runs", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")

	body, ct = upload(t, incident, consequence, map[string]string{"confirmations": "{not json"})
	rec = do(router, http.MethodPost, "/api/v1/runs", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProposals_UnparseableUpload(t *testing.T) {
	router := newRouter(t, false)
	incident := testkit.WriteFile(t, "incidents.csv", []byte("a,b\n1,2,3\n"))
	consequence := testkit.WriteCSV(t, "consequences.csv", testkit.SISConsequenceHeader)

	body, ct := upload(t, incident, consequence, nil)
	rec := do(router, http.MethodPost, "/api/v1/proposals", body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var out errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, string(intake.FailureUnparseableFile), out.Code)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "incident", out.Failure.AffectedFile)
}

func TestGetRun_Errors(t *testing.T) {
	router := newRouter(t, true)

	rec := do(router, http.MethodGet, "/api/v1/runs/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/runs/"+core.NewRunID().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/runs?verdict=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/runs?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns_WithoutStore(t *testing.T) {
	rec := do(newRouter(t, false), http.MethodGet, "/api/v1/runs", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
