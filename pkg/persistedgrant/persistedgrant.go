// Package persistedgrant exposes the server-side grants (consents, refresh
// tokens, device codes) for inspection and revocation.
//
// Grant keys are hashes of the raw handle. They travel through URLs in the
// query-string safe alphabet only.
package persistedgrant

import (
	"strings"
	"time"

	"github.com/tendant/identity-admin/pkg/secrets"
)

type PersistedGrant struct {
	Key          string
	Type         string
	SubjectID    string
	SubjectName  string
	SessionID    string
	ClientID     string
	Description  string
	CreationTime time.Time
	Expiration   *time.Time
	ConsumedTime *time.Time
	Data         string
}

// Subject is one user holding grants
type Subject struct {
	SubjectID   string
	SubjectName string
}

// HashKey derives the stored key of a grant handle
func HashKey(handle, grantType string) string {
	return secrets.ToSha256(handle + ":" + grantType)
}

// QueryStringSafeHash maps a base64 key to the URL-safe alphabet without padding
func QueryStringSafeHash(key string) string {
	key = strings.ReplaceAll(key, "+", "-")
	key = strings.ReplaceAll(key, "/", "_")
	return strings.TrimRight(key, "=")
}

// QueryStringUnSafeHash reverses QueryStringSafeHash
func QueryStringUnSafeHash(key string) string {
	key = strings.ReplaceAll(key, "-", "+")
	key = strings.ReplaceAll(key, "_", "/")
	if rem := len(key) % 4; rem != 0 {
		key += strings.Repeat("=", 4-rem)
	}
	return key
}
