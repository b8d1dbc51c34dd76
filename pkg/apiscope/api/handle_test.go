package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/apiscope"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	NewHandle(apiscope.NewApiScopeService(apiscope.NewInMemoryApiScopeRepository())).RegisterRoutes(r)
	return r
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestApiScopeEndpoints(t *testing.T) {
	h := newRouter()

	rec := call(t, h, http.MethodPost, "/apiscopes", ApiScopeRequest{Name: "api1", UserClaims: []string{"email"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/apiscopes", ApiScopeRequest{Name: "api1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h, http.MethodGet, "/apiscopes/names?scope=API&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["api1"]`, rec.Body.String())

	rec = call(t, h, http.MethodPut, "/apiscopes/1", ApiScopeRequest{Name: "api1", Emphasize: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/apiscopes/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var scope ApiScopeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scope))
	assert.True(t, scope.Emphasize)
	assert.Empty(t, scope.UserClaims)

	rec = call(t, h, http.MethodPost, "/apiscopes/1/properties", PropertyDTO{Key: "dept", Value: "eng"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, h, http.MethodPost, "/apiscopes/1/properties", PropertyDTO{Key: "dept", Value: "eng"})
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Code      string                   `json:"code"`
		Candidate PropertyConflictResponse `json:"candidate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, "ApiScopePropertyExistsKey", conflict.Code)
	assert.Equal(t, 1, conflict.Candidate.TotalCount)
	assert.Equal(t, "dept", conflict.Candidate.Property.Key)

	rec = call(t, h, http.MethodGet, "/apiscopes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodDelete, "/apiscopes/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, h, http.MethodDelete, "/apiscopes/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
