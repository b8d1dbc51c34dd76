// Package audit records admin changes and requests
package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

// Auditor receives one event per admin mutation. Implementations must not block.
type Auditor interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditEvent represents an audit event
type AuditEvent struct {
	Subject    string
	Action     string
	Resource   string
	ResourceID string
	URI        string
	Method     string
	Before     interface{}
	After      interface{}
	Timestamp  time.Time
	Metadata   map[string]interface{}
}

// WithMetadata adds metadata to the audit event
func (e AuditEvent) WithMetadata(key string, value interface{}) AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Nop discards events
type Nop struct{}

func (Nop) Record(context.Context, AuditEvent) {}

// SlogAuditor writes events as structured log lines
type SlogAuditor struct {
	logger *slog.Logger
}

// NewSlogAuditor creates an auditor on top of logger, or slog.Default() when nil
func NewSlogAuditor(logger *slog.Logger) *SlogAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditor{logger: logger.With("component", "audit")}
}

func (a *SlogAuditor) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Subject == "" {
		event.Subject = SubjectFromContext(ctx)
	}
	a.logger.InfoContext(ctx, "audit",
		"subject", event.Subject,
		"action", event.Action,
		"resource", event.Resource,
		"resource_id", event.ResourceID,
		"method", event.Method,
		"uri", event.URI,
		"before", event.Before,
		"after", event.After,
		"timestamp", event.Timestamp.Format(time.RFC3339),
		"metadata", event.Metadata,
	)
}

// Middleware audits every request that reaches the admin API
type Middleware struct {
	auditor Auditor
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(auditor Auditor) *Middleware {
	if auditor == nil {
		auditor = Nop{}
	}
	return &Middleware{auditor: auditor}
}

// AuditAuthMiddleware records the caller, method and URI of each request
func (m *Middleware) AuditAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event := AuditEvent{
			Action:    "request",
			URI:       r.RequestURI,
			Method:    r.Method,
			Timestamp: time.Now().UTC(),
			Subject:   SubjectFromContext(r.Context()),
		}
		if event.Subject == "" {
			event = event.WithMetadata("message", "No jwt token")
		}

		m.auditor.Record(r.Context(), event)

		next.ServeHTTP(w, r)
	})
}

// SubjectFromContext returns the "sub" claim of the verified admin token, if any
func SubjectFromContext(ctx context.Context) string {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil || claims == nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
