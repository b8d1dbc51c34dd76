package adminapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/tendant/identity-admin/pkg/common"
	"github.com/tendant/identity-admin/pkg/config"
)

// NewJWTAuth verifies HS256 bearer tokens signed with the admin API secret.
// Issuer and audience are checked when configured.
func NewJWTAuth(cfg config.AdminApiConfig) *jwtauth.JWTAuth {
	var opts []jwt.ValidateOption
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return jwtauth.New("HS256", []byte(cfg.JWTSecret), nil, opts...)
}

// RequireAdministrationRole rejects callers whose token lacks the configured
// administration role. Must run after jwtauth.Verifier and jwtauth.Authenticator.
func RequireAdministrationRole(cfg config.AdminApiConfig) func(http.Handler) http.Handler {
	claim := cfg.RoleClaim
	if claim == "" {
		claim = common.RoleClaim
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				slog.Debug("Unauthenticated request to admin api", "err", err)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			roles := common.GetRolesFromClaim(claims, claim)
			if !cfg.HasAdministrationRole(roles) {
				slog.Warn("Caller lacks administration role",
					"sub", claims["sub"],
					"roles", roles,
					"required", cfg.AdministrationRole)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken mints an admin API bearer token for subject carrying roles
func IssueToken(cfg config.AdminApiConfig, subject string, roles []string, now time.Time) (string, error) {
	claim := cfg.RoleClaim
	if claim == "" {
		claim = common.RoleClaim
	}
	claims := gojwt.MapClaims{
		"sub": subject,
		claim: roles,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(cfg.TokenLifetime).Unix(),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}
	if cfg.Audience != "" {
		claims["aud"] = cfg.Audience
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}
