package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, uint16(5432), cfg.Database.Port)
	assert.Equal(t, "IdentityAdminAdministrator", cfg.AdminApi.AdministrationRole)
	assert.Equal(t, time.Hour, cfg.AdminApi.TokenLifetime)
	assert.Equal(t, 720*time.Hour, cfg.Account.RememberMeLoginDuration)
	assert.True(t, cfg.Account.AllowLocalLogin)
	assert.False(t, cfg.Account.AutomaticRedirectAfterSignOut)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "tempkey.jwk", cfg.SigningCredential.DeveloperKeyFile)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.InDelta(t, 10.0, cfg.RateLimit.PerSecond(), 0.001)
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "IDENTITY_PG_DATABASE=from_file\nAPPLY_SEED=true\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("IDENTITY_PG_HOST", "db.internal")
	t.Setenv("IDENTITY_PG_DATABASE", "from_env")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "from_env", cfg.Database.Database, "environment wins over the file")
	assert.True(t, cfg.Seed.ApplySeed)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	// godotenv leaves variables it set behind; clear them for other tests
	t.Cleanup(func() {
		os.Unsetenv("APPLY_SEED")
		os.Unsetenv("LOG_LEVEL")
	})
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	t.Run("azure needs an endpoint", func(t *testing.T) {
		c := cfg
		c.SigningCredential.UseSigningCertificateForAzureKeyVault = true
		err := c.Validate()
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
		assert.Equal(t, "AZURE_KEY_VAULT_ENDPOINT", verrs[0].Field)
	})

	t.Run("short admin secret", func(t *testing.T) {
		c := cfg
		c.AdminApi.JWTSecret = "short"
		assert.ErrorContains(t, c.Validate(), "ADMIN_API_JWT_SECRET")
	})

	t.Run("unknown log level", func(t *testing.T) {
		c := cfg
		c.LogLevel = "verbose"
		assert.ErrorContains(t, c.Validate(), "LOG_LEVEL")
	})

	t.Run("rate limit needs a positive rate", func(t *testing.T) {
		c := cfg
		c.RateLimit.PerMinute = 0
		assert.ErrorContains(t, c.Validate(), "RATE_LIMIT_PER_MINUTE")

		c.RateLimit.Enabled = false
		assert.NoError(t, c.Validate())
	})
}

func TestDatabaseConfig(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, Database: "d", User: "u", Password: "p", Schema: "s"}
	assert.Equal(t, "postgres://u:p@h:5433/d?sslmode=disable&search_path=s,public", d.ToDatabaseURL())

	db := d.ToDbConfig()
	assert.Equal(t, "h", db.Host)
	assert.Equal(t, uint16(5433), db.Port)
	assert.Equal(t, "d", db.Database)
}

func TestHasAdministrationRole(t *testing.T) {
	a := AdminApiConfig{AdministrationRole: "IdentityAdminAdministrator"}
	assert.True(t, a.HasAdministrationRole([]string{"reader", "identityadminadministrator"}))
	assert.False(t, a.HasAdministrationRole([]string{"reader"}))
	assert.False(t, a.HasAdministrationRole(nil))
}
