// Package identityresource manages the identity resources (groups of user
// claims such as openid, profile and email) a client can request.
package identityresource

import "time"

type IdentityResource struct {
	ID                      int
	Name                    string
	DisplayName             string
	Description             string
	Enabled                 bool
	Required                bool
	Emphasize               bool
	ShowInDiscoveryDocument bool
	UserClaims              []string
	Properties              []IdentityResourceProperty
	Created                 time.Time
	Updated                 *time.Time
}

func NewIdentityResource(name string) *IdentityResource {
	return &IdentityResource{
		Name:                    name,
		Enabled:                 true,
		ShowInDiscoveryDocument: true,
	}
}

type IdentityResourceProperty struct {
	ID                 int
	IdentityResourceID int
	Key                string
	Value              string
}

// PropertiesView is one page of a resource's properties. Property is set to
// the rejected candidate when carried by a conflict.
type PropertiesView struct {
	IdentityResourceID   int
	IdentityResourceName string
	Property             IdentityResourceProperty
	Properties           []IdentityResourceProperty
	TotalCount           int
	PageSize             int
}
