package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "alice", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	err := ParseJSON(req, &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseJSONOrError(t *testing.T) {
	var dest map[string]interface{}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ok":true}`))
	rec := httptest.NewRecorder()
	assert.True(t, ParseJSONOrError(rec, req, &dest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`nope`))
	rec = httptest.NewRecorder()
	assert.False(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantVal int64
		wantErr string
	}{
		{name: "valid", vars: map[string]string{"id": "42"}, wantVal: 42},
		{name: "missing", vars: map[string]string{}, wantErr: "missing path parameter"},
		{name: "not a number", vars: map[string]string{"id": "forty-two"}, wantErr: "invalid integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), tt.vars)
			val, err := ParsePathInt64(req, "id")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestParsePathInt64OrError(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "9"})
	rec := httptest.NewRecorder()
	val, ok := ParsePathInt64OrError(rec, req, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(9), val)

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "x"})
	rec = httptest.NewRecorder()
	_, ok = ParsePathInt64OrError(rec, req, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&corpus_id=3&sort=score", nil)

	limit, err := ParseQueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	fallback, err := ParseQueryInt(req, "absent", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, fallback)

	corpusID, err := ParseQueryInt64(req, "corpus_id", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), corpusID)

	assert.Equal(t, "score", ParseQueryString(req, "sort", "created"))
	assert.Equal(t, "created", ParseQueryString(req, "absent", "created"))

	bad := httptest.NewRequest(http.MethodGet, "/?limit=lots", nil)
	_, err = ParseQueryInt(bad, "limit", 50)
	assert.Error(t, err)
	_, err = ParseQueryInt64(bad, "limit", 50)
	assert.Error(t, err)
}

func TestRequireHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "something", "title"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "title"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"title is required"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	assert.True(t, RequirePositive(rec, 1, "target_id"))

	rec = httptest.NewRecorder()
	assert.False(t, RequirePositive(rec, 0, "target_id"))
	assert.JSONEq(t, `{"error":"target_id must be positive"}`, rec.Body.String())
}
