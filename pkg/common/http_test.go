package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/identity-admin/pkg/errors"
	"github.com/tendant/identity-admin/pkg/paging"
	"github.com/tendant/identity-admin/pkg/utils"
)

func TestPageParams(t *testing.T) {
	tests := []struct {
		query    string
		search   string
		page     int
		pageSize int
	}{
		{"", "", 1, 10},
		{"search=abc&page=3&pageSize=25", "abc", 3, 25},
		{"page=0&pageSize=-1", "", 1, 10},
		{"page=x", "", 1, 10},
		{"page=922337203685477582&pageSize=9223372036854775807", "", 922337203685477582, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			search, page, pageSize := PageParams(r)
			assert.Equal(t, tt.search, search)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, pageSize)
		})
	}
}

func TestIntURLParam(t *testing.T) {
	var got int
	var gotErr error
	r := chi.NewRouter()
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = IntURLParam(r, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, 42, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	assert.True(t, apperrors.IsCode(gotErr, apperrors.ErrCodeInvalidInput))
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.DoesNotExist(apperrors.ErrCodeClientDoesNotExist, "Client with id %d doesn't exist", 7), http.StatusNotFound, "ClientDoesNotExist"},
		{"not implemented", apperrors.NotImplemented("provider delete"), http.StatusNotImplemented, "NOT_IMPLEMENTED"},
		{"conflict", apperrors.NewConflict(apperrors.ErrCodeApiScopeExistsKey, map[string]string{"name": "api1"}, "Api scope %s already exists", "api1"), http.StatusConflict, "ApiScopeExistsKey"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RenderError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RenderError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))
		assert.NotContains(t, rec.Body.String(), "hunter2")
	})
}

func TestRenderDeleted(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderDeleted(rec, httptest.NewRequest(http.MethodDelete, "/", nil), utils.RowNotFound, apperrors.ErrCodeKeyDoesNotExist, "Key does not exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "KeyDoesNotExist")

	rec = httptest.NewRecorder()
	RenderDeleted(rec, httptest.NewRequest(http.MethodDelete, "/", nil), 1, apperrors.ErrCodeKeyDoesNotExist, "Key does not exist")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeJSON(r, &v)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestToPagedResponse(t *testing.T) {
	list := paging.New([]int{1, 2}, 5, 2)
	resp := ToPagedResponse(list, func(i int) string { return strings.Repeat("x", i) })
	assert.Equal(t, []string{"x", "xx"}, resp.Data)
	assert.Equal(t, 5, resp.TotalCount)
	assert.Equal(t, 2, resp.PageSize)
}
