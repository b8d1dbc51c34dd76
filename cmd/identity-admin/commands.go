package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/identity-admin/migrations"
	"github.com/tendant/identity-admin/pkg/adminapi"
	"github.com/tendant/identity-admin/pkg/audit"
	"github.com/tendant/identity-admin/pkg/eventbus"
	"github.com/tendant/identity-admin/pkg/seed"
)

func newMigrateCmd(loadConfig loadConfigFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Up(cmd.Context(), pool)
			if err != nil {
				return err
			}
			version, err := migrations.Version(cmd.Context(), pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s), schema version %d\n", applied, version)
			return nil
		},
	}
}

func newSeedCmd(loadConfig loadConfigFunc) *cobra.Command {
	var (
		file           string
		skipMigrations bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the seed file contents, skipping items that already exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Seed.ApplySeed = true
			cfg.Seed.ApplyMigrations = !skipMigrations
			if file != "" {
				cfg.Seed.SeedFile = file
			}

			pool, err := openPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			services := newServices(pool, audit.NewSlogAuditor(slog.Default()), eventbus.Nop{})
			result, err := seed.Run(cmd.Context(), cfg.Seed, pool, seedServices(services))
			if err != nil {
				return err
			}
			seed.PrintResult(os.Stdout, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed file, JSON or YAML (defaults to SEED_FILE)")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply migrations before seeding")
	return cmd
}

func newTokenCmd(loadConfig loadConfigFunc) *cobra.Command {
	var (
		subject  string
		roles    []string
		lifetime time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a short lived admin api bearer token for local use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if lifetime > 0 {
				cfg.AdminApi.TokenLifetime = lifetime
			}
			if len(roles) == 0 {
				roles = []string{cfg.AdminApi.AdministrationRole}
			}
			token, err := adminapi.IssueToken(cfg.AdminApi, subject, roles, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			slog.Debug("Issued admin token", "sub", subject, "roles", strings.Join(roles, ","),
				"lifetime", cfg.AdminApi.TokenLifetime)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "identity-admin-cli", "Subject claim of the token")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim values (defaults to ADMIN_API_ROLE)")
	cmd.Flags().DurationVar(&lifetime, "lifetime", 0, "Token lifetime (defaults to ADMIN_API_TOKEN_LIFETIME)")
	return cmd
}
