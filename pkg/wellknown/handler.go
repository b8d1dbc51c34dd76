package wellknown

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/paging"
)

const (
	DiscoveryPath         = "/.well-known/openid-configuration"
	JWKSPath              = "/.well-known/openid-configuration/jwks"
	AuthorizationPath     = "/.well-known/oauth-authorization-server"
	ProtectedResourcePath = "/.well-known/oauth-protected-resource"
)

const scanPageSize = 100

type IdentityResourceLister interface {
	GetIdentityResources(ctx context.Context, search string, page, pageSize int) (paging.PagedList[identityresource.IdentityResource], error)
}

type ApiScopeLister interface {
	GetApiScopes(ctx context.Context, search string, page, pageSize int) (paging.PagedList[apiscope.ApiScope], error)
}

// KeySet publishes the signing and validation keys
type KeySet interface {
	JWKS() (jwk.Set, error)
}

// Handler serves the discovery documents and the JWKS
type Handler struct {
	config            Config
	identityResources IdentityResourceLister
	apiScopes         ApiScopeLister
	keys              KeySet
}

func NewHandler(config Config, identityResources IdentityResourceLister, apiScopes ApiScopeLister, keys KeySet) *Handler {
	return &Handler{
		config:            config,
		identityResources: identityResources,
		apiScopes:         apiScopes,
		keys:              keys,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(DiscoveryPath, h.OpenIDConfiguration)
	r.Get(AuthorizationPath, h.OpenIDConfiguration)
	r.Get(JWKSPath, h.JWKS)
	r.Get(ProtectedResourcePath, h.ProtectedResourceMetadata)
}

func discoveryHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// OpenIDConfiguration handles GET /.well-known/openid-configuration
func (h *Handler) OpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	scopes, claims, err := h.discoveryScopes(r.Context())
	if err != nil {
		slog.Error("Failed to collect discovery scopes", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	algorithms, err := h.algorithms()
	if err != nil {
		slog.Error("Failed to read signing algorithms", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	discoveryHeaders(w)
	render.JSON(w, r, NewDiscoveryDocument(h.config, scopes, claims, algorithms))
}

// JWKS handles GET /.well-known/openid-configuration/jwks
func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	set, err := h.keys.JWKS()
	if err != nil {
		slog.Error("Failed to build jwks", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	discoveryHeaders(w)
	render.JSON(w, r, set)
}

// ProtectedResourceMetadata handles GET /.well-known/oauth-protected-resource
func (h *Handler) ProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	discoveryHeaders(w)
	render.JSON(w, r, NewProtectedResourceMetadata(h.config))
}

// discoveryScopes lists enabled identity resources and api scopes shown in
// discovery, plus the user claims they carry
func (h *Handler) discoveryScopes(ctx context.Context) ([]string, []string, error) {
	var scopes []string
	claims := map[string]struct{}{}

	if h.identityResources != nil {
		err := scan(ctx, h.identityResources.GetIdentityResources, func(res identityresource.IdentityResource) {
			if !res.Enabled || !res.ShowInDiscoveryDocument {
				return
			}
			scopes = append(scopes, res.Name)
			for _, c := range res.UserClaims {
				claims[c] = struct{}{}
			}
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list identity resources: %w", err)
		}
	}

	if h.apiScopes != nil {
		err := scan(ctx, h.apiScopes.GetApiScopes, func(scope apiscope.ApiScope) {
			if !scope.Enabled || !scope.ShowInDiscoveryDocument {
				return
			}
			scopes = append(scopes, scope.Name)
			for _, c := range scope.UserClaims {
				claims[c] = struct{}{}
			}
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list api scopes: %w", err)
		}
	}

	claimList := make([]string, 0, len(claims))
	for c := range claims {
		claimList = append(claimList, c)
	}
	sort.Strings(claimList)
	return scopes, claimList, nil
}

func scan[T any](ctx context.Context, list func(context.Context, string, int, int) (paging.PagedList[T], error), visit func(T)) error {
	for page := 1; ; page++ {
		result, err := list(ctx, "", page, scanPageSize)
		if err != nil {
			return err
		}
		for _, item := range result.Data {
			visit(item)
		}
		if len(result.Data) == 0 || page*scanPageSize >= result.TotalCount {
			return nil
		}
	}
}

func (h *Handler) algorithms() ([]string, error) {
	if h.keys == nil {
		return nil, nil
	}
	set, err := h.keys.JWKS()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var algs []string
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		alg := key.Algorithm().String()
		if alg == "" || seen[alg] {
			continue
		}
		seen[alg] = true
		algs = append(algs, alg)
	}
	return algs, nil
}
