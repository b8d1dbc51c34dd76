package common

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClaim is the claim carrying the caller's roles in admin API tokens
const RoleClaim = "role"

// GetSubjectFromClaims returns the "sub" claim
func GetSubjectFromClaims(claims map[string]interface{}) (string, error) {
	subject, err := jwt.MapClaims(claims).GetSubject()
	if err != nil {
		return "", fmt.Errorf("invalid sub claim: %w", err)
	}
	if subject == "" {
		return "", fmt.Errorf("sub not found in token claims")
	}
	return subject, nil
}

// GetRolesFromClaims reads the role claim, which may be a single string,
// a space separated string, or an array of strings
func GetRolesFromClaims(claims map[string]interface{}) []string {
	return GetRolesFromClaim(claims, RoleClaim)
}

// GetRolesFromClaim is GetRolesFromClaims for a claim other than "role"
func GetRolesFromClaim(claims map[string]interface{}, claim string) []string {
	raw, ok := claims[claim]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []interface{}:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}

// HasRole reports whether claims grant role
func HasRole(claims map[string]interface{}, role string) bool {
	for _, r := range GetRolesFromClaims(claims) {
		if r == role {
			return true
		}
	}
	return false
}
