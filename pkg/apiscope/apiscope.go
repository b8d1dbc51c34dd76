// Package apiscope manages the API scopes clients can request.
//
// Scope names are unique. Each scope owns a set of user claims, replaced on
// update, and key/value properties that are only ever added or deleted.
package apiscope

// ApiScope is a named permission on an API
type ApiScope struct {
	ID                      int
	Name                    string
	DisplayName             string
	Description             string
	Required                bool
	Emphasize               bool
	ShowInDiscoveryDocument bool
	Enabled                 bool
	UserClaims              []string
	Properties              []ApiScopeProperty
}

// NewApiScope returns an enabled scope shown in discovery
func NewApiScope(name string) *ApiScope {
	return &ApiScope{
		Name:                    name,
		Enabled:                 true,
		ShowInDiscoveryDocument: true,
	}
}

type ApiScopeProperty struct {
	ID         int
	ApiScopeID int
	Key        string
	Value      string
}

// PropertiesView is one page of a scope's properties. Property is the
// rejected candidate when the view is carried by a conflict.
type PropertiesView struct {
	ApiScopeID   int
	ApiScopeName string
	Property     ApiScopeProperty
	Properties   []ApiScopeProperty
	TotalCount   int
	PageSize     int
}
