// Package wellknown serves the OpenID Connect discovery document, the JWKS
// of the resolved signing credential and the protected resource metadata of
// the admin API.
//
// The discovery document is built per request: scopes_supported lists the
// enabled identity resources and api scopes flagged ShowInDiscoveryDocument,
// and claims_supported is the union of their user claims.
//
//	handler := wellknown.NewHandler(wellknown.Config{Issuer: "https://auth.example.com"},
//	    identityResourceService, apiScopeService, credentials)
//	handler.RegisterRoutes(router)
package wellknown
