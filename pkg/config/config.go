// Package config loads the identity admin settings from the environment.
//
// A Config is read once at startup and passed by value into constructors.
// Nothing in this package keeps mutable package-level state.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

type Config struct {
	Environment string `env:"APP_ENV" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	Database          DatabaseConfig
	AdminApi          AdminApiConfig
	SigningCredential SigningCredentialConfig
	AzureKeyVault     AzureKeyVaultConfig
	Seed              SeedConfig
	Redis             RedisConfig
	Account           AccountOptions
	Metrics           MetricsConfig
	RateLimit         RateLimitConfig

	AppConfig app.AppConfig
}

// AdminApiConfig secures the admin API. Callers need a bearer token signed
// with JWTSecret carrying the administration role in RoleClaim.
type AdminApiConfig struct {
	AdministrationRole string        `env:"ADMIN_API_ROLE" env-default:"IdentityAdminAdministrator"`
	RoleClaim          string        `env:"ADMIN_API_ROLE_CLAIM" env-default:"role"`
	JWTSecret          string        `env:"ADMIN_API_JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer             string        `env:"ADMIN_API_ISSUER" env-default:"http://localhost:4000"`
	Audience           string        `env:"ADMIN_API_AUDIENCE" env-default:"identity_admin_api"`
	TokenLifetime      time.Duration `env:"ADMIN_API_TOKEN_LIFETIME" env-default:"1h"`
	Prefix             string        `env:"ADMIN_API_PREFIX" env-default:"/api"`
}

// SeedConfig gates migrations and seed data at startup
type SeedConfig struct {
	ApplyMigrations bool   `env:"APPLY_DATABASE_MIGRATIONS" env-default:"false"`
	ApplySeed       bool   `env:"APPLY_SEED" env-default:"false"`
	SeedFile        string `env:"SEED_FILE" env-default:"identitydata.json"`
}

// RedisConfig enables the integration event bus. An empty Addr disables it.
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR"`
	Password      string `env:"REDIS_PASSWORD"`
	DB            int    `env:"REDIS_DB" env-default:"0"`
	StreamPrefix  string `env:"EVENTBUS_STREAM_PREFIX" env-default:"identity"`
	ConsumerGroup string `env:"EVENTBUS_CONSUMER_GROUP" env-default:"identity-admin"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type AccountOptions struct {
	AllowLocalLogin               bool          `env:"ACCOUNT_ALLOW_LOCAL_LOGIN" env-default:"true"`
	AllowRememberLogin            bool          `env:"ACCOUNT_ALLOW_REMEMBER_LOGIN" env-default:"true"`
	RememberMeLoginDuration       time.Duration `env:"ACCOUNT_REMEMBER_ME_DURATION" env-default:"720h"`
	ShowLogoutPrompt              bool          `env:"ACCOUNT_SHOW_LOGOUT_PROMPT" env-default:"true"`
	AutomaticRedirectAfterSignOut bool          `env:"ACCOUNT_AUTOMATIC_REDIRECT_AFTER_SIGN_OUT" env-default:"false"`
}

type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" env-default:"true"`
	Path      string `env:"METRICS_PATH" env-default:"/metrics"`
	Namespace string `env:"METRICS_NAMESPACE" env-default:"identity_admin"`
}

// RateLimitConfig throttles admin api callers per token subject
type RateLimitConfig struct {
	Enabled   bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Burst     int           `env:"RATE_LIMIT_BURST" env-default:"100"`
	PerMinute int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"600"`
	BucketTTL time.Duration `env:"RATE_LIMIT_BUCKET_TTL" env-default:"1h"`
}

// PerSecond is the refill rate of a caller bucket
func (r RateLimitConfig) PerSecond() float64 {
	return float64(r.PerMinute) / 60
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	loadEnvFile(envFile)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err != nil {
		slog.Info("No env file found, using environment", "file", envFile)
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load env file", "file", envFile, "err", err)
		return
	}
	slog.Info("Loaded env file", "file", envFile)
}

func (c Config) Validate() error {
	return Validate(
		c.Database.validate,
		func() ValidationErrors {
			return CollectErrors(
				RequireNonEmpty("ADMIN_API_ROLE", c.AdminApi.AdministrationRole),
				RequireMinLength("ADMIN_API_JWT_SECRET", c.AdminApi.JWTSecret, 16),
				WhenSet(c.AdminApi.Issuer, func() *ValidationError {
					return RequireValidURL("ADMIN_API_ISSUER", c.AdminApi.Issuer)
				}),
				RequireOneOf("LOG_LEVEL", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}),
			)
		},
		func() ValidationErrors {
			if !c.RateLimit.Enabled {
				return nil
			}
			return CollectErrors(
				RequirePositive("RATE_LIMIT_BURST", c.RateLimit.Burst),
				RequirePositive("RATE_LIMIT_PER_MINUTE", c.RateLimit.PerMinute),
			)
		},
		func() ValidationErrors {
			return c.AzureKeyVault.validate(c.SigningCredential)
		},
		func() ValidationErrors {
			if !c.Seed.ApplySeed {
				return nil
			}
			return CollectErrors(RequireNonEmpty("SEED_FILE", c.Seed.SeedFile))
		},
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDevelopment reports whether APP_ENV names a development deployment
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local":
		return true
	}
	return false
}

// HasAdministrationRole reports whether any of roles matches the configured
// administration role, ignoring case.
func (a AdminApiConfig) HasAdministrationRole(roles []string) bool {
	for _, role := range roles {
		if strings.EqualFold(strings.TrimSpace(role), a.AdministrationRole) {
			return true
		}
	}
	return false
}
