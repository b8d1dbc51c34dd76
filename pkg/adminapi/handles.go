package adminapi

import (
	"github.com/tendant/identity-admin/pkg/apiresource"
	apiresourceapi "github.com/tendant/identity-admin/pkg/apiresource/api"
	"github.com/tendant/identity-admin/pkg/apiscope"
	apiscopeapi "github.com/tendant/identity-admin/pkg/apiscope/api"
	"github.com/tendant/identity-admin/pkg/identity"
	identityapi "github.com/tendant/identity-admin/pkg/identity/api"
	"github.com/tendant/identity-admin/pkg/identityresource"
	identityresourceapi "github.com/tendant/identity-admin/pkg/identityresource/api"
	"github.com/tendant/identity-admin/pkg/jwks"
	jwksapi "github.com/tendant/identity-admin/pkg/jwks/api"
	"github.com/tendant/identity-admin/pkg/oauth2client"
	oauth2clientapi "github.com/tendant/identity-admin/pkg/oauth2client/api"
	"github.com/tendant/identity-admin/pkg/persistedgrant"
	persistedgrantapi "github.com/tendant/identity-admin/pkg/persistedgrant/api"
)

// Services backs the admin resources. Nil services are not mounted.
type Services struct {
	Clients           *oauth2client.ClientService
	ApiResources      *apiresource.ApiResourceService
	ApiScopes         *apiscope.ApiScopeService
	IdentityResources *identityresource.IdentityResourceService
	Keys              *jwks.KeyService
	PersistedGrants   *persistedgrant.PersistedGrantService
	Identity          *identity.IdentityService
}

// Handles builds one handle per configured service
func Handles(s Services) []Routes {
	var handles []Routes
	if s.Clients != nil {
		handles = append(handles, oauth2clientapi.NewHandle(s.Clients))
	}
	if s.ApiResources != nil {
		handles = append(handles, apiresourceapi.NewHandle(s.ApiResources))
	}
	if s.ApiScopes != nil {
		handles = append(handles, apiscopeapi.NewHandle(s.ApiScopes))
	}
	if s.IdentityResources != nil {
		handles = append(handles, identityresourceapi.NewHandle(s.IdentityResources))
	}
	if s.Keys != nil {
		handles = append(handles, jwksapi.NewHandle(s.Keys))
	}
	if s.PersistedGrants != nil {
		handles = append(handles, persistedgrantapi.NewHandle(s.PersistedGrants))
	}
	if s.Identity != nil {
		handles = append(handles, identityapi.NewHandle(s.Identity))
	}
	return handles
}
