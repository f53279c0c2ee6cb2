package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Candle.Cooldown)
	assert.Equal(t, 5*time.Second, cfg.Candle.LockTTL)
	assert.Equal(t, 30*time.Second, cfg.Candle.CountCacheTTL)
}

func TestLoadYamlOverDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9000"
database:
  driver: postgres
  postgresDsn: "host=db user=postgres dbname=candles"
redis:
  addr: "redis:6379"
candle:
  cooldown: 1h
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Candle.Cooldown)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Candle.LockTTL)
	assert.Equal(t, "candled", cfg.Server.ServiceName)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  listen: \":9000\"\n")
	t.Setenv("CANDLE_SERVER_LISTEN", ":9100")
	t.Setenv("CANDLE_CANDLE_COOLDOWN", "2h")
	t.Setenv("CANDLE_MEMCACHED_ADDR", "memcached:11211")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Listen)
	assert.Equal(t, 2*time.Hour, cfg.Candle.Cooldown)
	assert.Equal(t, "memcached:11211", cfg.Memcached.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"zero cooldown", func(c *Config) { c.Candle.Cooldown = 0 }},
		{"auth without secret", func(c *Config) { c.Auth.Required = true }},
		{"trace without endpoint", func(c *Config) { c.Trace.Enabled = true }},
		{"sample ratio", func(c *Config) { c.Trace.SampleRatio = 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := Default()
	ctx := WithContext(context.Background(), &cfg)
	assert.Same(t, &cfg, FromContext(ctx))
}
