package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/identity-admin/pkg/adminapi"
	"github.com/tendant/identity-admin/pkg/audit"
	"github.com/tendant/identity-admin/pkg/config"
	"github.com/tendant/identity-admin/pkg/credential"
	"github.com/tendant/identity-admin/pkg/eventbus"
	"github.com/tendant/identity-admin/pkg/jwks"
	"github.com/tendant/identity-admin/pkg/ratelimit"
	"github.com/tendant/identity-admin/pkg/seed"
	"github.com/tendant/identity-admin/pkg/wellknown"
)

func newServeCmd(loadConfig loadConfigFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply the startup gates, resolve the signing credential and serve the admin api",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	auditor := audit.NewSlogAuditor(slog.Default())
	publisher, bus, err := newEventBus(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	services := newServices(pool, auditor, publisher)

	result, err := seed.Run(ctx, cfg.Seed, pool, seedServices(services))
	if err != nil {
		return err
	}
	slog.Info("Startup gates done", "migrations_applied", result.MigrationsApplied, "seeded", result.Seeded)

	credentials, err := credential.Resolve(ctx, cfg.SigningCredential, cfg.AzureKeyVault)
	if err != nil {
		return err
	}
	if err := persistKeys(ctx, services.Keys, credentials); err != nil {
		return err
	}

	if bus != nil {
		subscribeAccountEvents(bus)
		go func() {
			if err := bus.Run(ctx); err != nil {
				slog.Error("Event bus stopped", "err", err)
			}
		}()
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond(), cfg.RateLimit.BucketTTL)
		go limiter.Run(ctx)
	}

	server := app.DefaultApp()
	app.RegisterHealthzRoutes(server.R)

	wellKnown := wellknown.NewHandler(wellknown.Config{
		Issuer:        cfg.AdminApi.Issuer,
		AdminApiURI:   strings.TrimSuffix(cfg.AdminApi.Issuer, "/") + cfg.AdminApi.Prefix,
		AdminApiScope: cfg.AdminApi.Audience,
	}, services.IdentityResources, services.ApiScopes, credentials)

	err = adminapi.SetupRoutes(server.R, adminapi.Config{
		AdminApi:  cfg.AdminApi,
		Metrics:   cfg.Metrics,
		Auditor:   auditor,
		RateLimit: limiter,
		Public:    []adminapi.Routes{wellKnown},
		Handles:   adminapi.Handles(services),
	})
	if err != nil {
		return err
	}

	slog.Info("Identity admin ready",
		"environment", cfg.Environment,
		"issuer", cfg.AdminApi.Issuer,
		"admin_api", cfg.AdminApi.Prefix,
		"credential_source", credentials.Source)
	server.Run()
	return nil
}

// persistKeys stores the resolved signing and validation keys so they show
// up in the keys resource. Keys already stored are left alone.
func persistKeys(ctx context.Context, keys *jwks.KeyService, credentials *credential.Credentials) error {
	records, err := credentials.KeyRecords()
	if err != nil {
		return fmt.Errorf("failed to describe resolved keys: %w", err)
	}
	for _, record := range records {
		added, err := keys.AddKey(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to store key %s: %w", record.ID, err)
		}
		if added {
			slog.Info("Stored key", "kid", record.ID, "use", record.Use)
		}
	}
	return nil
}

func newEventBus(ctx context.Context, cfg config.RedisConfig) (eventbus.Publisher, *eventbus.RedisBus, error) {
	if !cfg.Enabled() {
		slog.Info("Redis not configured, integration events are dropped")
		return eventbus.Nop{}, nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}
	bus := eventbus.NewRedisBus(client, cfg.StreamPrefix, cfg.ConsumerGroup)
	slog.Info("Event bus connected", "addr", cfg.Addr, "prefix", cfg.StreamPrefix, "group", cfg.ConsumerGroup)
	return bus, bus, nil
}

func subscribeAccountEvents(bus *eventbus.RedisBus) {
	bus.Subscribe(eventbus.AccountCreated, func(ctx context.Context, event eventbus.Event) error {
		var payload eventbus.AccountCreatedPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Account created", "event_id", event.ID, "user_name", payload.UserName, "email", payload.Email)
		return nil
	})
	bus.Subscribe(eventbus.AccountUpdated, func(ctx context.Context, event eventbus.Event) error {
		var payload eventbus.AccountUpdatedPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Account updated", "event_id", event.ID, "email", payload.Email)
		return nil
	})
}
