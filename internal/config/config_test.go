package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("META_DATABASE_URL", "postgres://meta@localhost/meta")
	t.Setenv("TENANT_DB_USER", "taller")
	t.Setenv("TENANT_DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "dev-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, "120-M", cfg.RateLimit)
	assert.Equal(t, int64(10485760), cfg.PhotoMaxBytes)
	assert.Equal(t, cfg.MetaDatabaseURL, cfg.AdminURL())

	m := cfg.TenantManager()
	assert.Equal(t, "taller", m.DBUser)
	assert.Equal(t, 100, m.MaxTotalPools)
	assert.Equal(t, 30*time.Minute, m.PoolIdleTimeout)

	j := cfg.JWT()
	assert.Equal(t, "taller", j.Issuer)
	assert.Equal(t, "dev-secret", j.Secret)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TENANT_DB_MAX_POOLS", "7")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("POSTGRES_ADMIN_URL", "postgres://admin@localhost/postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.TenantManager().MaxTotalPools)
	assert.Equal(t, 5*time.Minute, cfg.JWT().AccessTokenTTL)
	assert.Equal(t, "postgres://admin@localhost/postgres", cfg.AdminURL())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("META_DATABASE_URL", "postgres://meta@localhost/meta")
	t.Setenv("TENANT_DB_USER", "taller")
	t.Setenv("TENANT_DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestProductionNeedsLongSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	_, err = Load()
	assert.NoError(t, err)
}
