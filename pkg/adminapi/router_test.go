package adminapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/audit"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/identity"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/jwks"
	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/persistedgrant"
	"github.com/tendant/identity-admin/pkg/ratelimit"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.AuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, event audit.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testAdminConfig() config.AdminApiConfig {
	return config.AdminApiConfig{
		AdministrationRole: "IdentityAdminAdministrator",
		RoleClaim:          "role",
		JWTSecret:          "test-secret-key-for-testing-only",
		Issuer:             "http://localhost:4000",
		Audience:           "identity_admin_api",
		TokenLifetime:      time.Hour,
		Prefix:             "/api",
	}
}

func testServices() Services {
	return Services{
		Clients:           oauth2client.NewClientService(oauth2client.NewInMemoryClientRepository()),
		ApiResources:      apiresource.NewApiResourceService(apiresource.NewInMemoryApiResourceRepository()),
		ApiScopes:         apiscope.NewApiScopeService(apiscope.NewInMemoryApiScopeRepository()),
		IdentityResources: identityresource.NewIdentityResourceService(identityresource.NewInMemoryIdentityResourceRepository()),
		Keys:              jwks.NewKeyService(jwks.NewInMemoryKeyRepository()),
		PersistedGrants:   persistedgrant.NewPersistedGrantService(persistedgrant.NewInMemoryPersistedGrantRepository()),
		Identity: identity.NewIdentityService(identity.NewInMemoryIdentityRepository(),
			identity.WithPasswordHasher(&identity.BcryptHasher{Cost: 4})),
	}
}

func newTestRouter(t *testing.T, auditor audit.Auditor) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	err := SetupRoutes(r, Config{
		AdminApi: testAdminConfig(),
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "identity_admin"},
		Auditor:  auditor,
		Registry: prometheus.NewRegistry(),
		Public:   []Routes{pingRoutes{}},
		Handles:  Handles(testServices()),
	})
	require.NoError(t, err)
	return r
}

func token(t *testing.T, cfg config.AdminApiConfig, roles ...string) string {
	t.Helper()
	signed, err := IssueToken(cfg, "admin-subject", roles, time.Now())
	require.NoError(t, err)
	return signed
}

func do(h http.Handler, method, path, bearer string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes_Authentication(t *testing.T) {
	h := newTestRouter(t, nil)
	cfg := testAdminConfig()

	tests := []struct {
		name       string
		bearer     string
		wantStatus int
	}{
		{name: "no token", bearer: "", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", bearer: "not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "missing role", bearer: token(t, cfg, "Reader"), wantStatus: http.StatusForbidden},
		{name: "role matches ignoring case", bearer: token(t, cfg, "identityadminadministrator"), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/clients", tt.bearer, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestSetupRoutes_RejectsForeignIssuer(t *testing.T) {
	h := newTestRouter(t, nil)
	cfg := testAdminConfig()
	cfg.Issuer = "https://elsewhere.example.com"

	rec := do(h, http.MethodGet, "/api/clients", token(t, cfg, cfg.AdministrationRole), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetupRoutes_RejectsExpiredToken(t *testing.T) {
	h := newTestRouter(t, nil)
	cfg := testAdminConfig()

	signed, err := IssueToken(cfg, "admin-subject", []string{cfg.AdministrationRole}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	rec := do(h, http.MethodGet, "/api/clients", signed, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetupRoutes_MountsEveryResource(t *testing.T) {
	h := newTestRouter(t, nil)
	cfg := testAdminConfig()
	bearer := token(t, cfg, cfg.AdministrationRole)

	for _, path := range []string{
		"/api/clients",
		"/api/apiresources",
		"/api/apiscopes",
		"/api/identityresources",
		"/api/keys",
		"/api/persistedgrants",
		"/api/users",
		"/api/roles",
	} {
		t.Run(path, func(t *testing.T) {
			rec := do(h, http.MethodGet, path, bearer, "")
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"totalCount":0`)
		})
	}
}

func TestSetupRoutes_PublicRoutesSkipAuthentication(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := do(h, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_AuditsCaller(t *testing.T) {
	auditor := &recordingAuditor{}
	h := newTestRouter(t, auditor)
	cfg := testAdminConfig()

	rec := do(h, http.MethodPost, "/api/apiscopes", token(t, cfg, cfg.AdministrationRole), `{"name":"orders.read"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	require.Len(t, auditor.events, 1)
	assert.Equal(t, "admin-subject", auditor.events[0].Subject)
	assert.Equal(t, http.MethodPost, auditor.events[0].Method)
	assert.Equal(t, "/api/apiscopes", auditor.events[0].URI)
}

func TestSetupRoutes_Metrics(t *testing.T) {
	h := newTestRouter(t, nil)
	cfg := testAdminConfig()
	bearer := token(t, cfg, cfg.AdministrationRole)

	do(h, http.MethodGet, "/api/keys", bearer, "")
	do(h, http.MethodGet, "/api/keys/missing", bearer, "")
	do(h, http.MethodGet, "/api/keys", "", "")

	rec := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `identity_admin_http_requests_total{method="GET",path="/api/keys",status="200"} 1`)
	assert.Contains(t, body, `status="401"`)
	assert.Contains(t, body, `identity_admin_http_requests_total{method="GET",path="/api/keys/{id}",status="404"} 1`)
	assert.Contains(t, body, "identity_admin_http_request_duration_seconds")
}

func TestSetupRoutes_ThrottlesPerSubject(t *testing.T) {
	cfg := testAdminConfig()
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, Config{
		AdminApi:  cfg,
		RateLimit: ratelimit.NewLimiter(2, 0.01, time.Hour),
		Handles:   Handles(testServices()),
	}))

	first, err := IssueToken(cfg, "first-admin", []string{cfg.AdministrationRole}, time.Now())
	require.NoError(t, err)
	second, err := IssueToken(cfg, "second-admin", []string{cfg.AdministrationRole}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/clients", first, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/clients", first, "").Code)

	rec := do(r, http.MethodGet, "/api/clients", first, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/clients", second, "").Code)

	// unauthenticated callers are rejected before they spend a token
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/clients", "", "").Code)
	}
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	cfg := config.MetricsConfig{Namespace: "identity_admin"}

	first, err := NewMetrics(cfg, registry)
	require.NoError(t, err)
	second, err := NewMetrics(cfg, registry)
	require.NoError(t, err)
	assert.Same(t, first.requests, second.requests)
}
