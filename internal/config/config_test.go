package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "BRA", cfg.Upstream.EntityCode)
	assert.Equal(t, 1990, cfg.Upstream.StartYear)
	assert.False(t, cfg.Upstream.IsAggregateSeries)
	assert.Equal(t, 2, cfg.Upstream.RetryCount)
	assert.Equal(t, 5, cfg.Projection.DefaultHorizon)
	assert.Equal(t, 1, cfg.Projection.MinHorizon)
	assert.Equal(t, 10, cfg.Projection.MaxHorizon)
	assert.Equal(t, SourceAPI, cfg.Data.Source)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Redis.SnapshotTTL)

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENERLYZE_SERVER_PORT", "9090")
	t.Setenv("ENERLYZE_UPSTREAM_API_KEY", "secret")
	t.Setenv("ENERLYZE_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("ENERLYZE_PROJECTION_DEFAULT_HORIZON", "7")
	t.Setenv("ENERLYZE_REDIS_ENABLED", "true")
	t.Setenv("ENERLYZE_DATABASE_HOST", "db.internal")
	t.Setenv("ENERLYZE_DATA_SOURCE", "database")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Upstream.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 7, cfg.Projection.DefaultHorizon)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, SourceDatabase, cfg.Data.Source)

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Upstream.BaseURL = "/v1" },
			wantErr: "upstream.base_url",
		},
		{
			name:    "default horizon above max",
			mutate:  func(c *Config) { c.Projection.DefaultHorizon = 11 },
			wantErr: "projection.default_horizon",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.Projection.MaxHorizon = 0 },
			wantErr: "projection.max_horizon",
		},
		{
			name:    "database source without database",
			mutate:  func(c *Config) { c.Data.Source = SourceDatabase },
			wantErr: "requires database.host",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Data.Source = "csv" },
			wantErr: "data.source",
		},
		{
			name: "redis without ttl",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.SnapshotTTL = 0
			},
			wantErr: "redis.snapshot_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
