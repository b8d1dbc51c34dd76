// Package jwks stores the signing and validation key records of the
// authorization server and publishes their public halves as a JWK set.
//
// Key records are read-only apart from deletion. The developer key source and
// the seed path add them.
package jwks

import "time"

// Key is one serialized key record. ID is the kid.
type Key struct {
	ID                string
	Version           int
	Created           time.Time
	Use               string
	Algorithm         string
	IsX509Certificate bool
	DataProtected     bool
	Data              string
}

const (
	UseSigning    = "signing"
	UseValidation = "validation"
)
