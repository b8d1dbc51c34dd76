package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/identity-admin/pkg/adminapi"
	"github.com/tendant/identity-admin/pkg/apiresource"
	"github.com/tendant/identity-admin/pkg/apiscope"
	"github.com/tendant/identity-admin/pkg/audit"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/eventbus"
	"github.com/tendant/identity-admin/pkg/identity"
	"github.com/tendant/identity-admin/pkg/identityresource"
	"github.com/tendant/identity-admin/pkg/jwks"
	"github.com/tendant/identity-admin/pkg/oauth2client"
	"github.com/tendant/identity-admin/pkg/persistedgrant"
	"github.com/tendant/identity-admin/pkg/seed"
)

type loadConfigFunc func() (config.Config, error)

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := dbutils.NewDbPool(ctx, cfg.ToDbConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s on %s:%d: %w", cfg.Database, cfg.Host, cfg.Port, err)
	}
	slog.Info("Database connected", "host", cfg.Host, "database", cfg.Database, "schema", cfg.Schema)
	return pool, nil
}

// newServices wires every service onto the postgres stores
func newServices(pool *pgxpool.Pool, auditor audit.Auditor, publisher eventbus.Publisher) adminapi.Services {
	return adminapi.Services{
		Clients: oauth2client.NewClientService(
			oauth2client.NewPostgresClientRepository(pool), oauth2client.WithAuditor(auditor)),
		ApiResources: apiresource.NewApiResourceService(
			apiresource.NewPostgresApiResourceRepository(pool), apiresource.WithAuditor(auditor)),
		ApiScopes: apiscope.NewApiScopeService(
			apiscope.NewPostgresApiScopeRepository(pool), apiscope.WithAuditor(auditor)),
		IdentityResources: identityresource.NewIdentityResourceService(
			identityresource.NewPostgresIdentityResourceRepository(pool), identityresource.WithAuditor(auditor)),
		Keys: jwks.NewKeyService(
			jwks.NewPostgresKeyRepository(pool), jwks.WithAuditor(auditor)),
		PersistedGrants: persistedgrant.NewPersistedGrantService(
			persistedgrant.NewPostgresPersistedGrantRepository(pool), persistedgrant.WithAuditor(auditor)),
		Identity: identity.NewIdentityService(
			identity.NewPostgresIdentityRepository(pool),
			identity.WithAuditor(auditor),
			identity.WithPublisher(publisher)),
	}
}

func seedServices(s adminapi.Services) seed.Services {
	return seed.Services{
		Identity:          s.Identity,
		IdentityResources: s.IdentityResources,
		ApiScopes:         s.ApiScopes,
		ApiResources:      s.ApiResources,
		Clients:           s.Clients,
	}
}
