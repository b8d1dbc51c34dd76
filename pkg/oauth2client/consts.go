package oauth2client

import (
	"sort"
	"strings"
)

var grantTypes = []string{
	GrantTypeImplicit,
	GrantTypeCode,
	GrantTypeHybrid,
	GrantTypeClientCredentials,
	GrantTypePassword,
	GrantTypeRefreshToken,
	GrantTypeDeviceFlow,
}

var standardClaims = []string{
	"name", "given_name", "family_name", "middle_name", "nickname",
	"preferred_username", "profile", "picture", "website", "gender",
	"birthdate", "zoneinfo", "locale", "address", "updated_at",
	"email", "email_verified", "phone_number", "phone_number_verified",
	"sub", "role",
}

var signingAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

var secretTypes = []string{
	"SharedSecret",
	"X509Thumbprint",
	"X509Name",
	"X509CertificateBase64",
	"JWK",
}

// GrantTypes lists the grant types matching search, sorted, at most limit (0 = all)
func GrantTypes(search string, limit int) []string {
	return filterValues(grantTypes, search, limit)
}

// StandardClaims lists the standard OIDC claims matching search
func StandardClaims(search string, limit int) []string {
	return filterValues(standardClaims, search, limit)
}

// SigningAlgorithms lists the token signing algorithms matching search
func SigningAlgorithms(search string, limit int) []string {
	return filterValues(signingAlgorithms, search, limit)
}

// SecretTypes lists the supported secret types
func SecretTypes() []string {
	out := make([]string, len(secretTypes))
	copy(out, secretTypes)
	return out
}

func filterValues(values []string, search string, limit int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if search == "" || strings.Contains(v, search) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
