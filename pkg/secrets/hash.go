// Package secrets hashes shared secrets before they are stored.
package secrets

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"
)

// SharedSecret is the only secret type whose value is hashed on write
const SharedSecret = "SharedSecret"

// HashType selects the digest used for a shared secret
type HashType int

const (
	Sha256 HashType = iota
	Sha512
)

func (h HashType) String() string {
	switch h {
	case Sha512:
		return "Sha512"
	default:
		return "Sha256"
	}
}

// ParseHashType accepts the names and numeric values used in admin forms
func ParseHashType(value string) (HashType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "sha256":
		return Sha256, nil
	case "1", "sha512":
		return Sha512, nil
	}
	return Sha256, fmt.Errorf("unknown hash type: %s", value)
}

// ToSha256 returns the base64 SHA-256 digest of value, or "" for an empty value
func ToSha256(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ToSha512 returns the base64 SHA-512 digest of value, or "" for an empty value
func ToSha512(value string) string {
	if value == "" {
		return ""
	}
	sum := sha512.Sum512([]byte(value))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Hash digests value with the requested algorithm
func Hash(value string, hashType HashType) string {
	if hashType == Sha512 {
		return ToSha512(value)
	}
	return ToSha256(value)
}

// Protect returns the value to persist for a secret of the given type.
// Only shared secrets are hashed; certificate based secrets are kept as is.
func Protect(secretType, value string, hashType HashType) string {
	if secretType != SharedSecret {
		return value
	}
	return Hash(value, hashType)
}
