package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, int32(25), cfg.Database.MaxConns)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, 30*time.Second, cfg.Cache.EventTTL)
		assert.Equal(t, "memory", cfg.Notification.Queue)
		assert.Equal(t, 3*time.Second, cfg.Notification.PublishTimeout)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Empty(t, cfg.Telemetry.Endpoint)
		assert.Same(t, cfg, AppConfig)
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_NAME", "registrations")
		t.Setenv("REDIS_ENABLED", "false")
		t.Setenv("NOTIFY_WEBHOOK_URL", "http://hooks.local/registrations")
		t.Setenv("CACHE_EVENT_TTL", "1m")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, "registrations", cfg.Database.DBName)
		assert.False(t, cfg.Redis.Enabled())
		assert.Equal(t, "http://hooks.local/registrations", cfg.Notification.WebhookURL)
		assert.Equal(t, time.Minute, cfg.Cache.EventTTL)
	})

	t.Run("Reads env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nOTEL_ENDPOINT=http://collector:4318\n"), 0o600))
		t.Cleanup(func() {
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("OTEL_ENDPOINT")
		})

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	})

	t.Run("Invalid queue", func(t *testing.T) {
		t.Setenv("NOTIFY_QUEUE", "kafka")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("Redis queue requires redis", func(t *testing.T) {
		t.Setenv("NOTIFY_QUEUE", "redis")
		t.Setenv("REDIS_ENABLED", "false")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_URLs(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable",
	}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=d sslmode=disable timezone=UTC", cfg.DSN())
	assert.Equal(t, "pgx5://u:p@localhost:5432/d?sslmode=disable", cfg.MigrationURL())
}
