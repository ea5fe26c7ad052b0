package rules

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectools/secrules/internal/rulestore"
	"github.com/sectools/secrules/internal/server/handlers/api"
)

func newTestRouter(t *testing.T, opts ...rulestore.Option) (*gin.Engine, *rulestore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := rulestore.New(opts...)
	exports, err := rulestore.NewExportCache(store)
	require.NoError(t, err)

	h := New(store, exports, nil)

	r := gin.New()
	r.GET("/rules", h.List)
	r.POST("/rules", h.Add)
	r.DELETE("/rules", h.Remove)
	r.GET("/rules/export", h.Export)
	return r, store
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func apiCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr api.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr.Code
}

func TestAddAndList(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/rules", `{"uid": 1001, "rule": "Allow SSH Access"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var added AddRuleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, uint32(1001), added.UID)
	assert.Equal(t, 1, added.Count)

	assert.Equal(t, []string{"Allow SSH Access"}, store.Rules(1001))

	w = doJSON(r, http.MethodGet, "/rules?uid=1001", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list ListRulesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, RuleEntry{UID: 1001, Rule: "Allow SSH Access"}, list.Rules[0])
}

func TestListAllUsers(t *testing.T) {
	r, store := newTestRouter(t)
	require.NoError(t, store.Add(20, "second"))
	require.NoError(t, store.Add(10, "first"))

	w := doJSON(r, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list ListRulesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, RuleEntry{UID: 10, Rule: "first"}, list.Rules[0])
	assert.Equal(t, RuleEntry{UID: 20, Rule: "second"}, list.Rules[1])
}

func TestListUnknownUIDIsEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/rules?uid=4040", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list ListRulesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Rules)
}

func TestAddErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing uid",
			body:       `{"rule": "no uid"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   api.CodeInvalidRequest,
		},
		{
			name:       "not json",
			body:       `uid=1`,
			wantStatus: http.StatusBadRequest,
			wantCode:   api.CodeInvalidRequest,
		},
		{
			name:       "empty rule",
			body:       `{"uid": 1, "rule": ""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   api.CodeRuleInvalid,
		},
		{
			name:       "rule with newline",
			body:       `{"uid": 1, "rule": "a\nb"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   api.CodeRuleInvalid,
		},
		{
			name:       "rule too long",
			body:       fmt.Sprintf(`{"uid": 1, "rule": %q}`, strings.Repeat("a", rulestore.MaxRuleLen+1)),
			wantStatus: http.StatusBadRequest,
			wantCode:   api.CodeRuleTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRouter(t)
			w := doJSON(r, http.MethodPost, "/rules", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, apiCode(t, w))
			assert.Zero(t, store.Len())
		})
	}
}

func TestAddCapacityExceeded(t *testing.T) {
	r, _ := newTestRouter(t, rulestore.WithMaxRules(1))

	w := doJSON(r, http.MethodPost, "/rules", `{"uid": 1, "rule": "fits"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/rules", `{"uid": 1, "rule": "does not"}`)
	assert.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Equal(t, api.CodeCapacityExceeded, apiCode(t, w))
}

func TestRemove(t *testing.T) {
	r, store := newTestRouter(t)
	require.NoError(t, store.Add(7, "to remove"))

	w := doJSON(r, http.MethodDelete, "/rules", `{"uid": 7, "rule": "to remove"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RemoveRuleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)

	// removing again is a no-op, still 200
	w = doJSON(r, http.MethodDelete, "/rules", `{"uid": 7, "rule": "to remove"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Found)
}

func TestExport(t *testing.T) {
	r, store := newTestRouter(t)
	require.NoError(t, store.Add(10, "first"))
	require.NoError(t, store.Add(20, "second"))

	w := doJSON(r, http.MethodGet, "/rules/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first\nsecond\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, w.Header().Get("X-Export-Truncated"))

	w = doJSON(r, http.MethodGet, "/rules/export?uid=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first\n", w.Body.String())
}

func TestBadUIDParam(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/rules?uid=notanumber", "/rules?uid=-1", "/rules/export?uid=99999999999"} {
		w := doJSON(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, api.CodeInvalidRequest, apiCode(t, w), path)
	}
}
