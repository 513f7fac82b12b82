package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.CatalogPort)
	assert.Equal(t, "5001", cfg.Server.AccountsPort)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "static/uploads", cfg.Storage.UploadFolder)
	assert.Equal(t, "/static/uploads", cfg.Storage.URLPrefix)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.RequireAdminToken)
	assert.Equal(t, []string{"*"}, cfg.Origins)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Zero(t, cfg.RateRPS, "rate limiting is off unless configured")
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CATALOG_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REQUIRE_ADMIN_TOKEN", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.CatalogPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Auth.RequireAdminToken)
	assert.Equal(t, 30*time.Second, cfg.DB.ConnMaxLifetime)
}

func TestDB_DSN(t *testing.T) {
	d := DB{Host: "db", Port: "3307", User: "shop", Password: "pw", Name: "books"}
	assert.Equal(t, "shop:pw@tcp(db:3307)/books?parseTime=true", d.DSN())

	d.URL = "u:p@tcp(x:1)/y"
	assert.Equal(t, "u:p@tcp(x:1)/y", d.DSN())
}
