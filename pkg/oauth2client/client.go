package oauth2client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/identity-admin/pkg/secrets"
)

// Grant types understood by the authorization server
const (
	GrantTypeImplicit          = "implicit"
	GrantTypeCode              = "authorization_code"
	GrantTypeHybrid            = "hybrid"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeDeviceFlow        = "urn:ietf:params:oauth:grant-type:device_code"
)

const (
	ProtocolTypeOIDC = "oidc"

	// Lifetimes in seconds applied to new clients
	DefaultIdentityTokenLifetime        = 300
	DefaultAccessTokenLifetime          = 3600
	DefaultAuthorizationCodeLifetime    = 300
	DefaultAbsoluteRefreshTokenLifetime = 2592000
	DefaultSlidingRefreshTokenLifetime  = 1296000
	DefaultDeviceCodeLifetime           = 300
)

// ClientType picks the grant type and secret defaults of a new client
type ClientType int

const (
	ClientTypeEmpty ClientType = iota
	ClientTypeWeb
	ClientTypeSpa
	ClientTypeNative
	ClientTypeMachine
	ClientTypeDevice
)

var clientTypeNames = map[ClientType]string{
	ClientTypeEmpty:   "Empty",
	ClientTypeWeb:     "Web",
	ClientTypeSpa:     "Spa",
	ClientTypeNative:  "Native",
	ClientTypeMachine: "Machine",
	ClientTypeDevice:  "Device",
}

func (t ClientType) String() string {
	if name, ok := clientTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ParseClientType accepts a type name (any case) or its number
func ParseClientType(value string) (ClientType, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ClientTypeEmpty, nil
	}
	for t, name := range clientTypeNames {
		if strings.EqualFold(name, value) || strconv.Itoa(int(t)) == value {
			return t, nil
		}
	}
	return ClientTypeEmpty, fmt.Errorf("unknown client type: %s", value)
}

// Client is an OAuth2/OIDC client registration
type Client struct {
	ID                               int
	ClientID                         string
	ClientName                       string
	Description                      string
	ClientURI                        string
	LogoURI                          string
	Enabled                          bool
	ProtocolType                     string
	RequireClientSecret              bool
	RequirePkce                      bool
	AllowPlainTextPkce               bool
	RequireConsent                   bool
	AllowRememberConsent             bool
	AllowOfflineAccess               bool
	AllowAccessTokensViaBrowser      bool
	AlwaysIncludeUserClaimsInIdToken bool
	IdentityTokenLifetime            int
	AccessTokenLifetime              int
	AuthorizationCodeLifetime        int
	AbsoluteRefreshTokenLifetime     int
	SlidingRefreshTokenLifetime      int
	DeviceCodeLifetime               int
	ClientClaimsPrefix               string
	FrontChannelLogoutURI            string
	BackChannelLogoutURI             string
	Created                          time.Time
	Updated                          *time.Time

	AllowedGrantTypes            []string
	RedirectURIs                 []string
	PostLogoutRedirectURIs       []string
	AllowedCorsOrigins           []string
	AllowedScopes                []string
	IdentityProviderRestrictions []string

	ClientSecrets []ClientSecret
	Claims        []ClientClaim
	Properties    []ClientProperty

	// ClientType is only read when the client is created
	ClientType ClientType
}

// ClientSecret is a credential of a client. Value is never returned by reads.
type ClientSecret struct {
	ID          int
	ClientID    int
	Description string
	Value       string
	Expiration  *time.Time
	Type        string
	HashType    secrets.HashType
	Created     time.Time
}

// ClientClaim is a claim added to every token issued to the client
type ClientClaim struct {
	ID       int
	ClientID int
	Type     string
	Value    string
}

// ClientProperty is a free form key/value owned by one client
type ClientProperty struct {
	ID       int
	ClientID int
	Key      string
	Value    string
}

// CloneOptions selects the collections copied from the original client
type CloneOptions struct {
	CloneClientCorsOrigins            bool
	CloneClientGrantTypes             bool
	CloneClientIdPRestrictions        bool
	CloneClientPostLogoutRedirectUris bool
	CloneClientRedirectUris           bool
	CloneClientScopes                 bool
	CloneClientClaims                 bool
	CloneClientProperties             bool
}

// CloneAll copies every collection
func CloneAll() CloneOptions {
	return CloneOptions{
		CloneClientCorsOrigins:            true,
		CloneClientGrantTypes:             true,
		CloneClientIdPRestrictions:        true,
		CloneClientPostLogoutRedirectUris: true,
		CloneClientRedirectUris:           true,
		CloneClientScopes:                 true,
		CloneClientClaims:                 true,
		CloneClientProperties:             true,
	}
}

// SecretsView is one page of a client's secrets
type SecretsView struct {
	ClientID   int
	ClientName string
	Secrets    []ClientSecret
	TotalCount int
	PageSize   int
}

// ClaimsView is one page of a client's claims
type ClaimsView struct {
	ClientID   int
	ClientName string
	Claims     []ClientClaim
	TotalCount int
	PageSize   int
}

// PropertiesView is one page of a client's properties. A property conflict
// carries it with Property set to the rejected candidate.
type PropertiesView struct {
	ClientID   int
	ClientName string
	Property   ClientProperty
	Properties []ClientProperty
	TotalCount int
	PageSize   int
}

// NewClient returns a client with the registration defaults applied
func NewClient(clientID, clientName string, clientType ClientType) *Client {
	return &Client{
		ClientID:                     clientID,
		ClientName:                   clientName,
		ClientType:                   clientType,
		Enabled:                      true,
		ProtocolType:                 ProtocolTypeOIDC,
		RequireClientSecret:          true,
		AllowRememberConsent:         true,
		IdentityTokenLifetime:        DefaultIdentityTokenLifetime,
		AccessTokenLifetime:          DefaultAccessTokenLifetime,
		AuthorizationCodeLifetime:    DefaultAuthorizationCodeLifetime,
		AbsoluteRefreshTokenLifetime: DefaultAbsoluteRefreshTokenLifetime,
		SlidingRefreshTokenLifetime:  DefaultSlidingRefreshTokenLifetime,
		DeviceCodeLifetime:           DefaultDeviceCodeLifetime,
	}
}

// ApplyClientTypeDefaults sets the grant types and flags implied by the
// client type. It only adds grant types that are not already present.
func ApplyClientTypeDefaults(client *Client) error {
	switch client.ClientType {
	case ClientTypeEmpty:
	case ClientTypeWeb:
		client.AllowedGrantTypes = appendMissing(client.AllowedGrantTypes, GrantTypeCode)
		client.RequirePkce = true
		client.RequireClientSecret = true
	case ClientTypeSpa, ClientTypeNative:
		client.AllowedGrantTypes = appendMissing(client.AllowedGrantTypes, GrantTypeCode)
		client.RequirePkce = true
		client.RequireClientSecret = false
	case ClientTypeMachine:
		client.AllowedGrantTypes = appendMissing(client.AllowedGrantTypes, GrantTypeClientCredentials)
	case ClientTypeDevice:
		client.AllowedGrantTypes = appendMissing(client.AllowedGrantTypes, GrantTypeDeviceFlow)
		client.RequireClientSecret = false
		client.AllowOfflineAccess = true
	default:
		return fmt.Errorf("client type out of range: %d", client.ClientType)
	}
	return nil
}

// DisplayName renders "clientId (clientName)" the way admin pages title a client
func DisplayName(clientID, clientName string) string {
	if clientName == "" {
		return clientID
	}
	return fmt.Sprintf("%s (%s)", clientID, clientName)
}

func appendMissing(values []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, v := range values {
			if v == item {
				found = true
				break
			}
		}
		if !found {
			values = append(values, item)
		}
	}
	return values
}
