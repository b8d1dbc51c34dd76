package wellknown

import "strings"

// ProtectedResourceMetadata describes the admin API as an OAuth 2.0
// protected resource (RFC 9728)
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	Scopes                 []string `json:"scopes,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// DiscoveryDocument is the OpenID Connect discovery document. It is a
// superset of the OAuth 2.0 authorization server metadata (RFC 8414).
type DiscoveryDocument struct {
	Issuer                             string   `json:"issuer"`
	JwksURI                            string   `json:"jwks_uri"`
	AuthorizationEndpoint              string   `json:"authorization_endpoint"`
	TokenEndpoint                      string   `json:"token_endpoint"`
	UserinfoEndpoint                   string   `json:"userinfo_endpoint"`
	EndSessionEndpoint                 string   `json:"end_session_endpoint"`
	CheckSessionIframe                 string   `json:"check_session_iframe"`
	RevocationEndpoint                 string   `json:"revocation_endpoint"`
	IntrospectionEndpoint              string   `json:"introspection_endpoint"`
	DeviceAuthorizationEndpoint        string   `json:"device_authorization_endpoint"`
	FrontchannelLogoutSupported        bool     `json:"frontchannel_logout_supported"`
	FrontchannelLogoutSessionSupported bool     `json:"frontchannel_logout_session_supported"`
	BackchannelLogoutSupported         bool     `json:"backchannel_logout_supported"`
	BackchannelLogoutSessionSupported  bool     `json:"backchannel_logout_session_supported"`
	ScopesSupported                    []string `json:"scopes_supported"`
	ClaimsSupported                    []string `json:"claims_supported"`
	GrantTypesSupported                []string `json:"grant_types_supported"`
	ResponseTypesSupported             []string `json:"response_types_supported"`
	ResponseModesSupported             []string `json:"response_modes_supported"`
	TokenEndpointAuthMethodsSupported  []string `json:"token_endpoint_auth_methods_supported"`
	IDTokenSigningAlgValuesSupported   []string `json:"id_token_signing_alg_values_supported"`
	SubjectTypesSupported              []string `json:"subject_types_supported"`
	CodeChallengeMethodsSupported      []string `json:"code_challenge_methods_supported"`
	RequestParameterSupported          bool     `json:"request_parameter_supported"`
}

// Config holds the public addresses used in the discovery documents
type Config struct {
	// Issuer is the authorization server base URL, e.g. "https://auth.example.com"
	Issuer string

	// AdminApiURI is the canonical URI of the admin API resource
	AdminApiURI string

	// AdminApiScope is the scope callers of the admin API need
	AdminApiScope string

	ResourceDocumentation string
}

func (c Config) issuer() string {
	return strings.TrimSuffix(c.Issuer, "/")
}

var (
	grantTypesSupported = []string{
		"authorization_code",
		"client_credentials",
		"refresh_token",
		"implicit",
		"password",
		"urn:ietf:params:oauth:grant-type:device_code",
	}
	responseTypesSupported = []string{
		"code", "token", "id_token", "id_token token",
		"code id_token", "code token", "code id_token token",
	}
)

// NewDiscoveryDocument builds the discovery document for the given scopes,
// claims and signing algorithms
func NewDiscoveryDocument(config Config, scopes, claims, algorithms []string) *DiscoveryDocument {
	issuer := config.issuer()
	if scopes == nil {
		scopes = []string{}
	}
	if claims == nil {
		claims = []string{}
	}
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}

	return &DiscoveryDocument{
		Issuer:                             issuer,
		JwksURI:                            issuer + JWKSPath,
		AuthorizationEndpoint:              issuer + "/connect/authorize",
		TokenEndpoint:                      issuer + "/connect/token",
		UserinfoEndpoint:                   issuer + "/connect/userinfo",
		EndSessionEndpoint:                 issuer + "/connect/endsession",
		CheckSessionIframe:                 issuer + "/connect/checksession",
		RevocationEndpoint:                 issuer + "/connect/revocation",
		IntrospectionEndpoint:              issuer + "/connect/introspect",
		DeviceAuthorizationEndpoint:        issuer + "/connect/deviceauthorization",
		FrontchannelLogoutSupported:        true,
		FrontchannelLogoutSessionSupported: true,
		BackchannelLogoutSupported:         true,
		BackchannelLogoutSessionSupported:  true,
		ScopesSupported:                    scopes,
		ClaimsSupported:                    claims,
		GrantTypesSupported:                grantTypesSupported,
		ResponseTypesSupported:             responseTypesSupported,
		ResponseModesSupported:             []string{"form_post", "query", "fragment"},
		TokenEndpointAuthMethodsSupported:  []string{"client_secret_basic", "client_secret_post"},
		IDTokenSigningAlgValuesSupported:   algorithms,
		SubjectTypesSupported:              []string{"public"},
		CodeChallengeMethodsSupported:      []string{"plain", "S256"},
		RequestParameterSupported:          true,
	}
}

// NewProtectedResourceMetadata describes the admin API resource
func NewProtectedResourceMetadata(config Config) *ProtectedResourceMetadata {
	var scopes []string
	if config.AdminApiScope != "" {
		scopes = []string{config.AdminApiScope}
	}
	return &ProtectedResourceMetadata{
		Resource:               config.AdminApiURI,
		AuthorizationServers:   []string{config.issuer()},
		Scopes:                 scopes,
		BearerMethodsSupported: []string{"header"},
		ResourceDocumentation:  config.ResourceDocumentation,
	}
}
