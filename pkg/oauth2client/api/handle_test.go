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

	"github.com/tendant/identity-admin/pkg/common"
	"github.com/tendant/identity-admin/pkg/oauth2client"
)

func newTestRouter(t *testing.T) (http.Handler, *oauth2client.InMemoryClientRepository) {
	t.Helper()
	repo := oauth2client.NewInMemoryClientRepository()
	handle := NewHandle(oauth2client.NewClientService(repo))

	r := chi.NewRouter()
	handle.RegisterRoutes(r)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/clients", ClientRequest{
		ClientID:     "app1",
		ClientName:   "App One",
		ClientType:   "Web",
		RedirectURIs: []string{"https://app1.example/cb"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created IDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodGet, "/clients/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var client ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &client))
	assert.Equal(t, created.ID, client.ID)
	assert.Equal(t, []string{oauth2client.GrantTypeCode}, client.AllowedGrantTypes)
	assert.True(t, client.RequirePkce)

	t.Run("duplicate client id returns 409 with the candidate", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/clients", ClientRequest{ClientID: "app1", ClientName: "Again"})
		require.Equal(t, http.StatusConflict, rec.Code)

		var body struct {
			Code      string         `json:"code"`
			Message   string         `json:"message"`
			Candidate ClientResponse `json:"candidate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ClientExistsKey", body.Code)
		assert.Contains(t, body.Message, "app1")
		assert.Equal(t, "Again", body.Candidate.ClientName)
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/clients?search=APP&page=1&pageSize=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page common.PagedResponse[ClientResponse]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 1, page.TotalCount)
		assert.Equal(t, 5, page.PageSize)
	})

	t.Run("secrets are write only", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/clients/1/secrets", ClientSecretRequest{Value: "top-secret", HashType: "sha512"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = do(t, router, http.MethodGet, "/clients/1/secrets", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "top-secret")
		assert.NotContains(t, rec.Body.String(), `"value"`)
	})

	t.Run("property conflict carries siblings", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/clients/1/properties", ClientPropertyResponse{Key: "dept", Value: "eng"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = do(t, router, http.MethodPost, "/clients/1/properties", ClientPropertyResponse{Key: "dept", Value: "ops"})
		require.Equal(t, http.StatusConflict, rec.Code)

		var body struct {
			Code      string                   `json:"code"`
			Candidate PropertyConflictResponse `json:"candidate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ClientPropertyExistsKey", body.Code)
		assert.Equal(t, 1, body.Candidate.TotalCount)
		assert.Equal(t, "ops", body.Candidate.Property.Value)
	})

	t.Run("delete missing child is 404", func(t *testing.T) {
		rec := do(t, router, http.MethodDelete, "/clients/claims/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("remove", func(t *testing.T) {
		rec := do(t, router, http.MethodDelete, "/clients/1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, router, http.MethodGet, "/clients/1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAddClient_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		req  ClientRequest
	}{
		{"missing client id", ClientRequest{ClientName: "x"}},
		{"unknown client type", ClientRequest{ClientID: "a", ClientType: "robot"}},
		{"unknown grant type", ClientRequest{ClientID: "a", AllowedGrantTypes: []string{"magic"}}},
		{"http redirect off localhost", ClientRequest{ClientID: "a", RedirectURIs: []string{"http://example.com/cb"}}},
		{"redirect with fragment", ClientRequest{ClientID: "a", RedirectURIs: []string{"https://example.com/cb#x"}}},
		{"cors origin with path", ClientRequest{ClientID: "a", AllowedCorsOrigins: []string{"https://example.com/app"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/clients", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, router, http.MethodPost, "/clients", ClientRequest{
		ClientID:     "local",
		RedirectURIs: []string{"http://localhost:5000/cb"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLookupsEndpoints(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.SetKnownScopes("openid", "profile")

	rec := do(t, router, http.MethodGet, "/clients/lookups/scopes?search=pro", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["profile"]`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/clients/lookups/signing-algorithms?search=PS&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["PS256","PS384"]`, rec.Body.String())
}
