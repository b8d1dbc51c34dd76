package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/identity-admin/migrations"
	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/identity"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/secrets"
)

const (
	KindRole             = "role"
	KindUser             = "user"
	KindIdentityResource = "identity_resource"
	KindApiScope         = "api_scope"
	KindApiResource      = "api_resource"
	KindClient           = "client"
)

// Services are the stores the seed writes through
type Services struct {
	Identity          *identity.IdentityService
	IdentityResources *identityresource.IdentityResourceService
	ApiScopes         *apiscope.ApiScopeService
	ApiResources      *apiresource.ApiResourceService
	Clients           *oauth2client.ClientService
}

func (s Services) validate() error {
	if s.Identity == nil || s.IdentityResources == nil || s.ApiScopes == nil ||
		s.ApiResources == nil || s.Clients == nil {
		return errors.New("all seed services are required")
	}
	return nil
}

// Item is one seed entry and whether this run inserted it
type Item struct {
	Kind    string
	Name    string
	Created bool
}

type Result struct {
	MigrationsApplied int
	Seeded            bool
	Items             []Item
}

func (r *Result) add(kind, name string, created bool) {
	r.Items = append(r.Items, Item{Kind: kind, Name: name, Created: created})
}

// Created counts the inserted items of kind
func (r *Result) Created(kind string) int {
	n := 0
	for _, item := range r.Items {
		if item.Kind == kind && item.Created {
			n++
		}
	}
	return n
}

// Run applies the migrations and the seed file when their gates are set.
// Any error must abort startup.
func Run(ctx context.Context, cfg config.SeedConfig, pool *pgxpool.Pool, services Services) (*Result, error) {
	result := &Result{}
	if cfg.ApplyMigrations {
		applied, err := migrations.Up(ctx, pool)
		if err != nil {
			return nil, err
		}
		result.MigrationsApplied = applied
		slog.Info("Database migrations applied", "count", applied)
	}

	if !cfg.ApplySeed {
		return result, nil
	}
	file, err := Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := Apply(ctx, file, services, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Apply inserts every entry of file that does not exist yet. Configuration
// (resources, scopes, clients) goes first so seeded users can reference it.
func Apply(ctx context.Context, file *File, services Services, result *Result) error {
	if err := services.validate(); err != nil {
		return err
	}
	result.Seeded = true

	steps := []func(context.Context, *File, Services, *Result) error{
		seedIdentityResources,
		seedApiScopes,
		seedApiResources,
		seedClients,
		seedRoles,
		seedUsers,
	}
	for _, step := range steps {
		if err := step(ctx, file, services, result); err != nil {
			return err
		}
	}

	slog.Info("Seed data applied",
		"roles_created", result.Created(KindRole),
		"users_created", result.Created(KindUser),
		"identity_resources_created", result.Created(KindIdentityResource),
		"api_scopes_created", result.Created(KindApiScope),
		"api_resources_created", result.Created(KindApiResource),
		"clients_created", result.Created(KindClient))
	return nil
}

func seedIdentityResources(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityServerData.IdentityResources {
		resource := identityresource.NewIdentityResource(item.Name)
		resource.DisplayName = item.DisplayName
		resource.Description = item.Description
		resource.Enabled = boolOr(item.Enabled, true)
		resource.Required = item.Required
		resource.Emphasize = item.Emphasize
		resource.ShowInDiscoveryDocument = boolOr(item.ShowInDiscoveryDocument, true)
		resource.UserClaims = item.UserClaims

		ok, err := services.IdentityResources.CanInsertIdentityResource(ctx, resource)
		if err != nil {
			return fmt.Errorf("failed to check identity resource %s: %w", item.Name, err)
		}
		if !ok {
			result.add(KindIdentityResource, item.Name, false)
			continue
		}
		if _, err := services.IdentityResources.AddIdentityResource(ctx, resource); err != nil {
			return fmt.Errorf("failed to seed identity resource %s: %w", item.Name, err)
		}
		result.add(KindIdentityResource, item.Name, true)
	}
	return nil
}

func seedApiScopes(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityServerData.ApiScopes {
		scope := apiscope.NewApiScope(item.Name)
		scope.DisplayName = item.DisplayName
		scope.Description = item.Description
		scope.Enabled = boolOr(item.Enabled, true)
		scope.Required = item.Required
		scope.Emphasize = item.Emphasize
		scope.ShowInDiscoveryDocument = boolOr(item.ShowInDiscoveryDocument, true)
		scope.UserClaims = item.UserClaims

		ok, err := services.ApiScopes.CanInsertApiScope(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to check api scope %s: %w", item.Name, err)
		}
		if !ok {
			result.add(KindApiScope, item.Name, false)
			continue
		}
		if _, err := services.ApiScopes.AddApiScope(ctx, scope); err != nil {
			return fmt.Errorf("failed to seed api scope %s: %w", item.Name, err)
		}
		result.add(KindApiScope, item.Name, true)
	}
	return nil
}

func seedApiResources(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityServerData.ApiResources {
		resource := apiresource.NewApiResource(item.Name)
		resource.DisplayName = item.DisplayName
		resource.Description = item.Description
		resource.Enabled = boolOr(item.Enabled, true)
		resource.Scopes = item.Scopes
		resource.UserClaims = item.UserClaims
		for _, s := range item.ApiSecrets {
			resource.Secrets = append(resource.Secrets, apiresource.ApiSecret{
				Value:       s.Value,
				Description: s.Description,
				Type:        secretType(s.Type),
				Expiration:  s.Expiration,
				HashType:    secrets.Sha256,
			})
		}

		ok, err := services.ApiResources.CanInsertApiResource(ctx, resource)
		if err != nil {
			return fmt.Errorf("failed to check api resource %s: %w", item.Name, err)
		}
		if !ok {
			result.add(KindApiResource, item.Name, false)
			continue
		}
		if _, err := services.ApiResources.AddApiResource(ctx, resource); err != nil {
			return fmt.Errorf("failed to seed api resource %s: %w", item.Name, err)
		}
		result.add(KindApiResource, item.Name, true)
	}
	return nil
}

func seedClients(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityServerData.Clients {
		client := toClient(item)

		ok, err := services.Clients.CanInsertClient(ctx, client, false)
		if err != nil {
			return fmt.Errorf("failed to check client %s: %w", item.ClientId, err)
		}
		if !ok {
			result.add(KindClient, item.ClientId, false)
			continue
		}
		if _, err := services.Clients.AddClient(ctx, client); err != nil {
			return fmt.Errorf("failed to seed client %s: %w", item.ClientId, err)
		}
		result.add(KindClient, item.ClientId, true)
	}
	return nil
}

func toClient(item Client) *oauth2client.Client {
	client := oauth2client.NewClient(item.ClientId, item.ClientName, oauth2client.ClientTypeEmpty)
	client.Description = item.Description
	client.ClientURI = item.ClientUri
	client.LogoURI = item.LogoUri
	client.Enabled = boolOr(item.Enabled, true)
	client.RequireClientSecret = boolOr(item.RequireClientSecret, true)
	client.RequirePkce = item.RequirePkce
	client.RequireConsent = item.RequireConsent
	client.AllowOfflineAccess = item.AllowOfflineAccess
	client.AllowAccessTokensViaBrowser = item.AllowAccessTokensViaBrowser
	if item.AccessTokenLifetime > 0 {
		client.AccessTokenLifetime = item.AccessTokenLifetime
	}
	client.FrontChannelLogoutURI = item.FrontChannelLogoutUri
	client.BackChannelLogoutURI = item.BackChannelLogoutUri
	client.AllowedGrantTypes = item.AllowedGrantTypes
	client.RedirectURIs = item.RedirectUris
	client.PostLogoutRedirectURIs = item.PostLogoutRedirectUris
	client.AllowedCorsOrigins = item.AllowedCorsOrigins
	client.AllowedScopes = item.AllowedScopes

	for _, s := range item.ClientSecrets {
		client.ClientSecrets = append(client.ClientSecrets, oauth2client.ClientSecret{
			Value:       s.Value,
			Description: s.Description,
			Type:        secretType(s.Type),
			Expiration:  s.Expiration,
			HashType:    secrets.Sha256,
		})
	}
	for _, c := range item.ClientClaims {
		client.Claims = append(client.Claims, oauth2client.ClientClaim{Type: c.Type, Value: c.Value})
	}
	return client
}

func secretType(value string) string {
	if value == "" {
		return secrets.SharedSecret
	}
	return value
}

func seedRoles(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityData.Roles {
		existing, err := services.Identity.FindRoleByName(ctx, item.Name)
		if err != nil {
			return fmt.Errorf("failed to look up role %s: %w", item.Name, err)
		}
		if existing != nil {
			result.add(KindRole, item.Name, false)
			continue
		}

		roleID, err := services.Identity.CreateRole(ctx, &identity.Role{Name: item.Name})
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", item.Name, err)
		}
		for _, c := range item.Claims {
			if _, err := services.Identity.CreateRoleClaim(ctx, &identity.RoleClaim{RoleID: roleID, Type: c.Type, Value: c.Value}); err != nil {
				return fmt.Errorf("failed to seed claim %s of role %s: %w", c.Type, item.Name, err)
			}
		}
		result.add(KindRole, item.Name, true)
	}
	return nil
}

// seedUsers skips a user when its user name or its email is taken
func seedUsers(ctx context.Context, file *File, services Services, result *Result) error {
	for _, item := range file.IdentityData.Users {
		byName, err := services.Identity.FindUserByName(ctx, item.Username)
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", item.Username, err)
		}
		byEmail, err := services.Identity.FindUserByEmail(ctx, item.Email)
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", item.Username, err)
		}
		if byName != nil || byEmail != nil {
			result.add(KindUser, item.Username, false)
			continue
		}

		user := &identity.User{
			UserName:       item.Username,
			Email:          item.Email,
			EmailConfirmed: true,
			LockoutEnabled: true,
		}
		userID, err := services.Identity.CreateUser(ctx, user, item.Password)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", item.Username, err)
		}
		for _, c := range item.Claims {
			if _, err := services.Identity.CreateUserClaim(ctx, &identity.UserClaim{UserID: userID, Type: c.Type, Value: c.Value}); err != nil {
				return fmt.Errorf("failed to seed claim %s of user %s: %w", c.Type, item.Username, err)
			}
		}
		for _, roleName := range item.Roles {
			role, err := services.Identity.FindRoleByName(ctx, roleName)
			if err != nil {
				return fmt.Errorf("failed to look up role %s: %w", roleName, err)
			}
			if role == nil {
				slog.Warn("Seed user references an unknown role", "user", item.Username, "role", roleName)
				continue
			}
			if _, err := services.Identity.AddUserToRole(ctx, userID, role.ID); err != nil {
				return fmt.Errorf("failed to add user %s to role %s: %w", item.Username, roleName, err)
			}
		}
		result.add(KindUser, item.Username, true)
	}
	return nil
}
