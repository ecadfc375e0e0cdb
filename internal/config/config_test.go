package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_TOKEN_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("JWT_TTL_HOURS", "")
	t.Setenv("AUTHZ_ENFORCE_OWNERSHIP", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("PORT", "")

	cfg := Load()

	require.Equal(t, StoreMongo, cfg.StoreDriver)
	require.Equal(t, "TechDiscoveriaDB", cfg.MongoDatabase)
	require.Equal(t, 6*time.Hour, cfg.JWTTTL)
	require.True(t, cfg.EnforceOwnership)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_TOKEN_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("JWT_TTL_HOURS", "1")
	t.Setenv("AUTHZ_ENFORCE_OWNERSHIP", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.False(t, cfg.EnforceOwnership)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 5000, cfg.Port)
}

func TestLoad_LegacySecretName(t *testing.T) {
	t.Setenv("JWT_TOKEN_SECRET", "")
	t.Setenv("JWT_SECRET", "legacy")

	require.Equal(t, "legacy", Load().JWTSecret)
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", JWTTTL: time.Hour, StoreDriver: StoreMemory, Port: 5000}
	require.NoError(t, base.Validate())

	noSecret := base
	noSecret.JWTSecret = "  "
	require.Error(t, noSecret.Validate())

	badDriver := base
	badDriver.StoreDriver = "sqlite"
	require.Error(t, badDriver.Validate())

	for _, ttl := range []time.Duration{0, -time.Hour} {
		badTTL := base
		badTTL.JWTTTL = ttl
		require.Error(t, badTTL.Validate(), "ttl=%s", ttl)
	}
}

func TestLoad_NonPositiveTTLFailsValidation(t *testing.T) {
	t.Setenv("JWT_TOKEN_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_TTL_HOURS", "0")

	require.Error(t, Load().Validate())
}

func TestBuildDBURL_PrefersDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	require.Equal(t, "postgres://u:p@db:5432/x", buildDBURL())
}
