package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/engine"
	"github.com/relentless-ops/runbook-engine/internal/wire/dispatch"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
`), 0o600))

	e, err := engine.New(path)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e
}

func TestRouter_HealthzRespondsOkWhenNoAdaptersUnhealthy(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(dispatch.New(e.API), e.Health(), e, e.Metrics(), e.Logger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ListSourcesToolEndpoint(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(dispatch.New(e.API), e.Health(), e, e.Metrics(), e.Logger())

	req := httptest.NewRequest(http.MethodPost, "/v1/tools/list_sources", bytes.NewBufferString(`{"include_health": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestRouter_SearchRunbooksValidationErrorReturnsBadRequest(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(dispatch.New(e.API), e.Health(), e, e.Metrics(), e.Logger())

	req := httptest.NewRequest(http.MethodPost, "/v1/tools/search_runbooks", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownToolReturnsBadRequest(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(dispatch.New(e.API), e.Health(), e, e.Metrics(), e.Logger())

	req := httptest.NewRequest(http.MethodPost, "/v1/tools/not_a_real_tool", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MetricsEndpointServesPrometheusFormat(t *testing.T) {
	e := newTestEngine(t)
	router := NewRouter(dispatch.New(e.API), e.Health(), e, e.Metrics(), e.Logger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
