package wellknown

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/jwks"
	"github.com/tendant/identity-admin/pkg/paging"
)

type staticKeys struct {
	set jwk.Set
	err error
}

func (s staticKeys) JWKS() (jwk.Set, error) { return s.set, s.err }

type failingScopes struct{}

func (failingScopes) GetApiScopes(context.Context, string, int, int) (paging.PagedList[apiscope.ApiScope], error) {
	return paging.PagedList[apiscope.ApiScope]{}, errors.New("database unavailable")
}

func testKeys(t *testing.T) staticKeys {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	set, err := jwks.BuildJWKS(jwks.PublicKey{KeyID: "signing", Algorithm: "ES256", Key: &key.PublicKey})
	require.NoError(t, err)
	return staticKeys{set: set}
}

func seededServices(t *testing.T) (*identityresource.IdentityResourceService, *apiscope.ApiScopeService) {
	t.Helper()
	ctx := context.Background()
	resources := identityresource.NewIdentityResourceService(identityresource.NewInMemoryIdentityResourceRepository())
	scopes := apiscope.NewApiScopeService(apiscope.NewInMemoryApiScopeRepository())

	openid := identityresource.NewIdentityResource("openid")
	openid.UserClaims = []string{"sub"}
	profile := identityresource.NewIdentityResource("profile")
	profile.UserClaims = []string{"name", "website"}
	hidden := identityresource.NewIdentityResource("hidden")
	hidden.ShowInDiscoveryDocument = false
	hidden.UserClaims = []string{"secret_claim"}
	for _, res := range []*identityresource.IdentityResource{openid, profile, hidden} {
		_, err := resources.AddIdentityResource(ctx, res)
		require.NoError(t, err)
	}

	api := apiscope.NewApiScope("identity_admin_api")
	api.UserClaims = []string{"role", "name"}
	disabled := apiscope.NewApiScope("legacy_api")
	disabled.Enabled = false
	for _, scope := range []*apiscope.ApiScope{api, disabled} {
		_, err := scopes.AddApiScope(ctx, scope)
		require.NoError(t, err)
	}
	return resources, scopes
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOpenIDConfiguration(t *testing.T) {
	resources, scopes := seededServices(t)
	h := NewHandler(Config{Issuer: "https://auth.example.com/"}, resources, scopes, testKeys(t))

	rec := serve(h, DiscoveryPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var doc DiscoveryDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "https://auth.example.com", doc.Issuer)
	assert.Equal(t, "https://auth.example.com/.well-known/openid-configuration/jwks", doc.JwksURI)
	assert.Equal(t, "https://auth.example.com/connect/token", doc.TokenEndpoint)
	assert.Equal(t, []string{"openid", "profile", "identity_admin_api"}, doc.ScopesSupported)
	assert.Equal(t, []string{"name", "role", "sub", "website"}, doc.ClaimsSupported)
	assert.Equal(t, []string{"ES256"}, doc.IDTokenSigningAlgValuesSupported)
	assert.Contains(t, doc.GrantTypesSupported, "client_credentials")
}

func TestOpenIDConfiguration_ScopeFailure(t *testing.T) {
	h := NewHandler(Config{Issuer: "https://auth.example.com"}, nil, failingScopes{}, nil)
	rec := serve(h, DiscoveryPath)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOpenIDConfiguration_EmptyStore(t *testing.T) {
	h := NewHandler(Config{Issuer: "https://auth.example.com"}, nil, nil, nil)
	rec := serve(h, DiscoveryPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scopes_supported":[]`)
	assert.Contains(t, rec.Body.String(), `"id_token_signing_alg_values_supported":["RS256"]`)
}

func TestJWKS(t *testing.T) {
	h := NewHandler(Config{Issuer: "https://auth.example.com"}, nil, nil, testKeys(t))
	rec := serve(h, JWKSPath)
	require.Equal(t, http.StatusOK, rec.Code)

	set, err := jwk.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	key, _ := set.Key(0)
	assert.Equal(t, "signing", key.KeyID())
	assert.NotContains(t, rec.Body.String(), `"d":`)
}

func TestJWKS_Errors(t *testing.T) {
	rec := serve(NewHandler(Config{}, nil, nil, nil), JWKSPath)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(NewHandler(Config{}, nil, nil, staticKeys{err: errors.New("boom")}), JWKSPath)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProtectedResourceMetadata(t *testing.T) {
	h := NewHandler(Config{
		Issuer:        "https://auth.example.com",
		AdminApiURI:   "https://admin.example.com/api",
		AdminApiScope: "identity_admin_api",
	}, nil, nil, nil)

	rec := serve(h, ProtectedResourcePath)
	require.Equal(t, http.StatusOK, rec.Code)
	var meta ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, "https://admin.example.com/api", meta.Resource)
	assert.Equal(t, []string{"https://auth.example.com"}, meta.AuthorizationServers)
	assert.Equal(t, []string{"identity_admin_api"}, meta.Scopes)
}
