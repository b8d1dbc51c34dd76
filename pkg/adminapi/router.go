// Package adminapi mounts the admin REST resources behind bearer token
// authentication and the administration role check. Requests are throttled
// per caller, audited and counted in prometheus.
package adminapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/identity-admin/pkg/audit"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/ratelimit"
)

// Routes is implemented by every resource handle
type Routes interface {
	RegisterRoutes(r chi.Router)
}

// Config holds the dependencies needed to set up the admin routes
type Config struct {
	AdminApi config.AdminApiConfig
	Metrics  config.MetricsConfig

	// Auditor records one event per request. Defaults to audit.Nop.
	Auditor audit.Auditor

	// RateLimit throttles authenticated callers by token subject. Nil
	// disables throttling.
	RateLimit *ratelimit.Limiter

	// Registry for the request metrics. Nil creates a private registry.
	Registry *prometheus.Registry

	// Public routes are mounted at the root without authentication
	Public []Routes

	// Handles are mounted under AdminApi.Prefix behind authentication
	Handles []Routes
}

// SetupRoutes mounts the public and admin routes on router. Everything is
// registered inside a group so it can be called after other routes exist.
func SetupRoutes(router chi.Router, cfg Config) error {
	var metrics *Metrics
	if cfg.Metrics.Enabled {
		var err error
		metrics, err = NewMetrics(cfg.Metrics, cfg.Registry)
		if err != nil {
			return fmt.Errorf("failed to register admin api metrics: %w", err)
		}
	}

	tokenAuth := NewJWTAuth(cfg.AdminApi)
	auditMiddleware := audit.NewMiddleware(cfg.Auditor)

	prefix := cfg.AdminApi.Prefix
	if prefix == "" {
		prefix = "/"
	}

	router.Group(func(r chi.Router) {
		if metrics != nil {
			path := cfg.Metrics.Path
			if path == "" {
				path = "/metrics"
			}
			r.Use(metrics.Middleware)
			r.Method(http.MethodGet, path, metrics.Handler())
		}

		for _, h := range cfg.Public {
			h.RegisterRoutes(r)
		}

		r.Route(prefix, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			r.Use(RequireAdministrationRole(cfg.AdminApi))
			if cfg.RateLimit != nil {
				r.Use(ratelimit.Middleware(cfg.RateLimit))
			}
			r.Use(auditMiddleware.AuditAuthMiddleware)

			for _, h := range cfg.Handles {
				h.RegisterRoutes(r)
			}
		})
	})

	slog.Info("Admin api routes mounted",
		"prefix", prefix,
		"handles", len(cfg.Handles),
		"metrics", metrics != nil,
		"rate_limit", cfg.RateLimit != nil)
	return nil
}
