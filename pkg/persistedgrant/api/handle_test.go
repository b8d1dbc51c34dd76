package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/common"
	"github.com/tendant/identity-admin/pkg/persistedgrant"
)

func TestPersistedGrantEndpoints(t *testing.T) {
	repo := persistedgrant.NewInMemoryPersistedGrantRepository()
	key := persistedgrant.HashKey("refresh-handle", "refresh_token")
	require.NoError(t, repo.AddPersistedGrant(context.Background(), &persistedgrant.PersistedGrant{
		Key: key, Type: "refresh_token", SubjectID: "alice-id", SubjectName: "alice", ClientID: "spa", Data: "{}",
	}))

	r := chi.NewRouter()
	NewHandle(persistedgrant.NewPersistedGrantService(repo)).RegisterRoutes(r)
	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, "/persistedgrants?search=ali")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subjectName":"alice"`)

	rec = do(http.MethodGet, "/persistedgrants/alice-id")
	require.Equal(t, http.StatusOK, rec.Code)
	var page common.PagedResponse[GrantResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	safe := page.Data[0].Key
	assert.Equal(t, persistedgrant.QueryStringSafeHash(key), safe)

	rec = do(http.MethodGet, "/persistedgrants/grant/"+safe)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clientId":"spa"`)

	rec = do(http.MethodGet, "/persistedgrants/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PersistedGrantWithSubjectIdDoesNotExist")

	rec = do(http.MethodDelete, "/persistedgrants/grant/"+safe)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(http.MethodDelete, "/persistedgrants/grant/"+safe)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
