package api

import (
	"time"

	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/secrets"
)

// ClientRequest is the body of create and update calls
type ClientRequest struct {
	ClientID                         string                   `json:"clientId"`
	ClientName                       string                   `json:"clientName"`
	ClientType                       string                   `json:"clientType,omitempty"`
	Description                      string                   `json:"description,omitempty"`
	ClientURI                        string                   `json:"clientUri,omitempty"`
	LogoURI                          string                   `json:"logoUri,omitempty"`
	Enabled                          *bool                    `json:"enabled,omitempty"`
	ProtocolType                     string                   `json:"protocolType,omitempty"`
	RequireClientSecret              *bool                    `json:"requireClientSecret,omitempty"`
	RequirePkce                      bool                     `json:"requirePkce"`
	AllowPlainTextPkce               bool                     `json:"allowPlainTextPkce"`
	RequireConsent                   bool                     `json:"requireConsent"`
	AllowRememberConsent             *bool                    `json:"allowRememberConsent,omitempty"`
	AllowOfflineAccess               bool                     `json:"allowOfflineAccess"`
	AllowAccessTokensViaBrowser      bool                     `json:"allowAccessTokensViaBrowser"`
	AlwaysIncludeUserClaimsInIdToken bool                     `json:"alwaysIncludeUserClaimsInIdToken"`
	IdentityTokenLifetime            int                      `json:"identityTokenLifetime,omitempty"`
	AccessTokenLifetime              int                      `json:"accessTokenLifetime,omitempty"`
	AuthorizationCodeLifetime        int                      `json:"authorizationCodeLifetime,omitempty"`
	AbsoluteRefreshTokenLifetime     int                      `json:"absoluteRefreshTokenLifetime,omitempty"`
	SlidingRefreshTokenLifetime      int                      `json:"slidingRefreshTokenLifetime,omitempty"`
	DeviceCodeLifetime               int                      `json:"deviceCodeLifetime,omitempty"`
	ClientClaimsPrefix               string                   `json:"clientClaimsPrefix,omitempty"`
	FrontChannelLogoutURI            string                   `json:"frontChannelLogoutUri,omitempty"`
	BackChannelLogoutURI             string                   `json:"backChannelLogoutUri,omitempty"`
	AllowedGrantTypes                []string                 `json:"allowedGrantTypes,omitempty"`
	RedirectURIs                     []string                 `json:"redirectUris,omitempty"`
	PostLogoutRedirectURIs           []string                 `json:"postLogoutRedirectUris,omitempty"`
	AllowedCorsOrigins               []string                 `json:"allowedCorsOrigins,omitempty"`
	AllowedScopes                    []string                 `json:"allowedScopes,omitempty"`
	IdentityProviderRestrictions     []string                 `json:"identityProviderRestrictions,omitempty"`
	Claims                           []ClientClaimResponse    `json:"claims,omitempty"`
	Properties                       []ClientPropertyResponse `json:"properties,omitempty"`
}

// ClientResponse is a client as returned by the admin API
type ClientResponse struct {
	ID                               int                      `json:"id"`
	ClientID                         string                   `json:"clientId"`
	ClientName                       string                   `json:"clientName"`
	Description                      string                   `json:"description,omitempty"`
	ClientURI                        string                   `json:"clientUri,omitempty"`
	LogoURI                          string                   `json:"logoUri,omitempty"`
	Enabled                          bool                     `json:"enabled"`
	ProtocolType                     string                   `json:"protocolType"`
	RequireClientSecret              bool                     `json:"requireClientSecret"`
	RequirePkce                      bool                     `json:"requirePkce"`
	AllowPlainTextPkce               bool                     `json:"allowPlainTextPkce"`
	RequireConsent                   bool                     `json:"requireConsent"`
	AllowRememberConsent             bool                     `json:"allowRememberConsent"`
	AllowOfflineAccess               bool                     `json:"allowOfflineAccess"`
	AllowAccessTokensViaBrowser      bool                     `json:"allowAccessTokensViaBrowser"`
	AlwaysIncludeUserClaimsInIdToken bool                     `json:"alwaysIncludeUserClaimsInIdToken"`
	IdentityTokenLifetime            int                      `json:"identityTokenLifetime"`
	AccessTokenLifetime              int                      `json:"accessTokenLifetime"`
	AuthorizationCodeLifetime        int                      `json:"authorizationCodeLifetime"`
	AbsoluteRefreshTokenLifetime     int                      `json:"absoluteRefreshTokenLifetime"`
	SlidingRefreshTokenLifetime      int                      `json:"slidingRefreshTokenLifetime"`
	DeviceCodeLifetime               int                      `json:"deviceCodeLifetime"`
	ClientClaimsPrefix               string                   `json:"clientClaimsPrefix,omitempty"`
	FrontChannelLogoutURI            string                   `json:"frontChannelLogoutUri,omitempty"`
	BackChannelLogoutURI             string                   `json:"backChannelLogoutUri,omitempty"`
	Created                          time.Time                `json:"created"`
	Updated                          *time.Time               `json:"updated,omitempty"`
	AllowedGrantTypes                []string                 `json:"allowedGrantTypes"`
	RedirectURIs                     []string                 `json:"redirectUris"`
	PostLogoutRedirectURIs           []string                 `json:"postLogoutRedirectUris"`
	AllowedCorsOrigins               []string                 `json:"allowedCorsOrigins"`
	AllowedScopes                    []string                 `json:"allowedScopes"`
	IdentityProviderRestrictions     []string                 `json:"identityProviderRestrictions"`
	ClientSecrets                    []ClientSecretResponse   `json:"clientSecrets,omitempty"`
	Claims                           []ClientClaimResponse    `json:"claims,omitempty"`
	Properties                       []ClientPropertyResponse `json:"properties,omitempty"`
}

// CloneRequest names the copy and picks the collections to clone
type CloneRequest struct {
	ClientID                          string `json:"clientId"`
	ClientName                        string `json:"clientName"`
	CloneClientCorsOrigins            bool   `json:"cloneClientCorsOrigins"`
	CloneClientGrantTypes             bool   `json:"cloneClientGrantTypes"`
	CloneClientIdPRestrictions        bool   `json:"cloneClientIdPRestrictions"`
	CloneClientPostLogoutRedirectUris bool   `json:"cloneClientPostLogoutRedirectUris"`
	CloneClientRedirectUris           bool   `json:"cloneClientRedirectUris"`
	CloneClientScopes                 bool   `json:"cloneClientScopes"`
	CloneClientClaims                 bool   `json:"cloneClientClaims"`
	CloneClientProperties             bool   `json:"cloneClientProperties"`
}

// ClientSecretRequest adds a secret. Value is only ever accepted, never returned.
type ClientSecretRequest struct {
	Description string     `json:"description,omitempty"`
	Value       string     `json:"value"`
	Type        string     `json:"type,omitempty"`
	HashType    string     `json:"hashType,omitempty"`
	Expiration  *time.Time `json:"expiration,omitempty"`
}

// ClientSecretResponse never carries the secret value
type ClientSecretResponse struct {
	ID          int        `json:"id"`
	ClientID    int        `json:"clientId"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Expiration  *time.Time `json:"expiration,omitempty"`
	Created     time.Time  `json:"created"`
}

type ClientClaimResponse struct {
	ID       int    `json:"id,omitempty"`
	ClientID int    `json:"clientId,omitempty"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

type ClientPropertyResponse struct {
	ID       int    `json:"id,omitempty"`
	ClientID int    `json:"clientId,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// ChildListResponse is a page of one client's secrets, claims or properties
type ChildListResponse[T any] struct {
	ClientID   int    `json:"clientId"`
	ClientName string `json:"clientName"`
	Data       []T    `json:"data"`
	TotalCount int    `json:"totalCount"`
	PageSize   int    `json:"pageSize"`
}

// PropertyConflictResponse is the candidate of a property conflict
type PropertyConflictResponse struct {
	ChildListResponse[ClientPropertyResponse]
	Property ClientPropertyResponse `json:"property"`
}

// IDResponse answers create calls
type IDResponse struct {
	ID int `json:"id"`
}

// AffectedResponse answers update calls
type AffectedResponse struct {
	Affected int `json:"affected"`
}

func toClient(req ClientRequest, clientType oauth2client.ClientType) *oauth2client.Client {
	c := oauth2client.NewClient(req.ClientID, req.ClientName, clientType)
	c.Description = req.Description
	c.ClientURI = req.ClientURI
	c.LogoURI = req.LogoURI
	if req.Enabled != nil {
		c.Enabled = *req.Enabled
	}
	if req.ProtocolType != "" {
		c.ProtocolType = req.ProtocolType
	}
	if req.RequireClientSecret != nil {
		c.RequireClientSecret = *req.RequireClientSecret
	}
	c.RequirePkce = req.RequirePkce
	c.AllowPlainTextPkce = req.AllowPlainTextPkce
	c.RequireConsent = req.RequireConsent
	if req.AllowRememberConsent != nil {
		c.AllowRememberConsent = *req.AllowRememberConsent
	}
	c.AllowOfflineAccess = req.AllowOfflineAccess
	c.AllowAccessTokensViaBrowser = req.AllowAccessTokensViaBrowser
	c.AlwaysIncludeUserClaimsInIdToken = req.AlwaysIncludeUserClaimsInIdToken
	setIfPositive(&c.IdentityTokenLifetime, req.IdentityTokenLifetime)
	setIfPositive(&c.AccessTokenLifetime, req.AccessTokenLifetime)
	setIfPositive(&c.AuthorizationCodeLifetime, req.AuthorizationCodeLifetime)
	setIfPositive(&c.AbsoluteRefreshTokenLifetime, req.AbsoluteRefreshTokenLifetime)
	setIfPositive(&c.SlidingRefreshTokenLifetime, req.SlidingRefreshTokenLifetime)
	setIfPositive(&c.DeviceCodeLifetime, req.DeviceCodeLifetime)
	c.ClientClaimsPrefix = req.ClientClaimsPrefix
	c.FrontChannelLogoutURI = req.FrontChannelLogoutURI
	c.BackChannelLogoutURI = req.BackChannelLogoutURI
	c.AllowedGrantTypes = req.AllowedGrantTypes
	c.RedirectURIs = req.RedirectURIs
	c.PostLogoutRedirectURIs = req.PostLogoutRedirectURIs
	c.AllowedCorsOrigins = req.AllowedCorsOrigins
	c.AllowedScopes = req.AllowedScopes
	c.IdentityProviderRestrictions = req.IdentityProviderRestrictions
	for _, claim := range req.Claims {
		c.Claims = append(c.Claims, oauth2client.ClientClaim{Type: claim.Type, Value: claim.Value})
	}
	for _, p := range req.Properties {
		c.Properties = append(c.Properties, oauth2client.ClientProperty{Key: p.Key, Value: p.Value})
	}
	return c
}

func setIfPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func toClientResponse(c oauth2client.Client) ClientResponse {
	resp := ClientResponse{
		ID:                               c.ID,
		ClientID:                         c.ClientID,
		ClientName:                       c.ClientName,
		Description:                      c.Description,
		ClientURI:                        c.ClientURI,
		LogoURI:                          c.LogoURI,
		Enabled:                          c.Enabled,
		ProtocolType:                     c.ProtocolType,
		RequireClientSecret:              c.RequireClientSecret,
		RequirePkce:                      c.RequirePkce,
		AllowPlainTextPkce:               c.AllowPlainTextPkce,
		RequireConsent:                   c.RequireConsent,
		AllowRememberConsent:             c.AllowRememberConsent,
		AllowOfflineAccess:               c.AllowOfflineAccess,
		AllowAccessTokensViaBrowser:      c.AllowAccessTokensViaBrowser,
		AlwaysIncludeUserClaimsInIdToken: c.AlwaysIncludeUserClaimsInIdToken,
		IdentityTokenLifetime:            c.IdentityTokenLifetime,
		AccessTokenLifetime:              c.AccessTokenLifetime,
		AuthorizationCodeLifetime:        c.AuthorizationCodeLifetime,
		AbsoluteRefreshTokenLifetime:     c.AbsoluteRefreshTokenLifetime,
		SlidingRefreshTokenLifetime:      c.SlidingRefreshTokenLifetime,
		DeviceCodeLifetime:               c.DeviceCodeLifetime,
		ClientClaimsPrefix:               c.ClientClaimsPrefix,
		FrontChannelLogoutURI:            c.FrontChannelLogoutURI,
		BackChannelLogoutURI:             c.BackChannelLogoutURI,
		Created:                          c.Created,
		Updated:                          c.Updated,
		AllowedGrantTypes:                nonNil(c.AllowedGrantTypes),
		RedirectURIs:                     nonNil(c.RedirectURIs),
		PostLogoutRedirectURIs:           nonNil(c.PostLogoutRedirectURIs),
		AllowedCorsOrigins:               nonNil(c.AllowedCorsOrigins),
		AllowedScopes:                    nonNil(c.AllowedScopes),
		IdentityProviderRestrictions:     nonNil(c.IdentityProviderRestrictions),
	}
	for _, s := range c.ClientSecrets {
		resp.ClientSecrets = append(resp.ClientSecrets, toSecretResponse(s))
	}
	for _, claim := range c.Claims {
		resp.Claims = append(resp.Claims, toClaimResponse(claim))
	}
	for _, p := range c.Properties {
		resp.Properties = append(resp.Properties, toPropertyResponse(p))
	}
	return resp
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toCloneOptions(req CloneRequest) oauth2client.CloneOptions {
	return oauth2client.CloneOptions{
		CloneClientCorsOrigins:            req.CloneClientCorsOrigins,
		CloneClientGrantTypes:             req.CloneClientGrantTypes,
		CloneClientIdPRestrictions:        req.CloneClientIdPRestrictions,
		CloneClientPostLogoutRedirectUris: req.CloneClientPostLogoutRedirectUris,
		CloneClientRedirectUris:           req.CloneClientRedirectUris,
		CloneClientScopes:                 req.CloneClientScopes,
		CloneClientClaims:                 req.CloneClientClaims,
		CloneClientProperties:             req.CloneClientProperties,
	}
}

func toSecret(req ClientSecretRequest, hashType secrets.HashType) *oauth2client.ClientSecret {
	secretType := req.Type
	if secretType == "" {
		secretType = secrets.SharedSecret
	}
	return &oauth2client.ClientSecret{
		Description: req.Description,
		Value:       req.Value,
		Type:        secretType,
		HashType:    hashType,
		Expiration:  req.Expiration,
	}
}

func toSecretResponse(s oauth2client.ClientSecret) ClientSecretResponse {
	return ClientSecretResponse{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Description: s.Description,
		Type:        s.Type,
		Expiration:  s.Expiration,
		Created:     s.Created,
	}
}

func toClaimResponse(c oauth2client.ClientClaim) ClientClaimResponse {
	return ClientClaimResponse{ID: c.ID, ClientID: c.ClientID, Type: c.Type, Value: c.Value}
}

func toPropertyResponse(p oauth2client.ClientProperty) ClientPropertyResponse {
	return ClientPropertyResponse{ID: p.ID, ClientID: p.ClientID, Key: p.Key, Value: p.Value}
}

func toPropertiesResponse(view oauth2client.PropertiesView) ChildListResponse[ClientPropertyResponse] {
	resp := ChildListResponse[ClientPropertyResponse]{
		ClientID:   view.ClientID,
		ClientName: view.ClientName,
		Data:       make([]ClientPropertyResponse, 0, len(view.Properties)),
		TotalCount: view.TotalCount,
		PageSize:   view.PageSize,
	}
	for _, p := range view.Properties {
		resp.Data = append(resp.Data, toPropertyResponse(p))
	}
	return resp
}
