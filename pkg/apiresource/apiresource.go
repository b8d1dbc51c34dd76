package apiresource

import (
	"time"

	"github.com/tendant/identity-admin/pkg/secrets"
)

// ApiResource is a protected API and the scopes and claims it exposes
type ApiResource struct {
	ID                                  int
	Name                                string
	DisplayName                         string
	Description                         string
	Enabled                             bool
	ShowInDiscoveryDocument             bool
	RequireResourceIndicator            bool
	AllowedAccessTokenSigningAlgorithms []string
	UserClaims                          []string
	Scopes                              []string
	Secrets                             []ApiSecret
	Properties                          []ApiResourceProperty
	Created                             time.Time
	Updated                             *time.Time
}

// NewApiResource returns an enabled resource shown in discovery
func NewApiResource(name string) *ApiResource {
	return &ApiResource{
		Name:                    name,
		Enabled:                 true,
		ShowInDiscoveryDocument: true,
	}
}

// ApiSecret authenticates the API at the introspection endpoint
type ApiSecret struct {
	ID            int
	ApiResourceID int
	Description   string
	Value         string
	Expiration    *time.Time
	Type          string
	HashType      secrets.HashType
	Created       time.Time
}

type ApiResourceProperty struct {
	ID            int
	ApiResourceID int
	Key           string
	Value         string
}

// SecretsView is one page of a resource's secrets with the resource name
type SecretsView struct {
	ApiResourceID   int
	ApiResourceName string
	Secrets         []ApiSecret
	TotalCount      int
	PageSize        int
}

// PropertiesView is one page of a resource's properties. Property is the
// rejected candidate when the view is carried by a conflict.
type PropertiesView struct {
	ApiResourceID   int
	ApiResourceName string
	Property        ApiResourceProperty
	Properties      []ApiResourceProperty
	TotalCount      int
	PageSize        int
}
