package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	config := &Config{DBPath: ":memory:"}
	config.withDefaults()

	svc, err := NewServices(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, svc.Shutdown(context.Background()))
	})

	return SetupRoutes(svc)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	w := do(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIndexReportsVersion(t *testing.T) {
	h := newTestHandler(t)

	w := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SecRules")
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t)

	w := do(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRulesEndToEnd(t *testing.T) {
	h := newTestHandler(t)

	w := do(h, http.MethodPost, "/api/v1/rules", `{"uid": 1001, "rule": "Allow SSH Access"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/api/v1/rules/export?uid=1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Allow SSH Access\n", w.Body.String())

	w = do(h, http.MethodDelete, "/api/v1/rules", `{"uid": 1001, "rule": "Allow SSH Access"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// operations land in the audit log
	w = do(h, http.MethodGet, "/api/v1/audit", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int `json:"count"`
		Entries []struct {
			Op      string `json:"op"`
			Outcome string `json:"outcome"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "remove", resp.Entries[0].Op)
	assert.Equal(t, "add", resp.Entries[1].Op)
}

func TestMetricsExposed(t *testing.T) {
	h := newTestHandler(t)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
}
