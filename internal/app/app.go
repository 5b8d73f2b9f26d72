// Package app holds the wiring shared by the enerlyze commands
package app

import (
	"context"

	"enerlyze/internal/cache"
	"enerlyze/internal/config"
	"enerlyze/internal/fetchers"
	"enerlyze/internal/services"
	"enerlyze/pkg/database"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// Version is reported in logs and the API document
const Version = "1.0.0"

// NewLogger builds the structured logger for one command
func NewLogger(cfg *config.Config, service string) *logging.StructuredLogger {
	return logging.NewStructuredLogger(service, Version, logging.ParseLevel(cfg.Logging.Level))
}

// DatabaseConfig maps the database section onto the connection settings
func DatabaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

// ClientConfig maps the upstream section onto the fetcher settings
func ClientConfig(cfg *config.Config) fetchers.ClientConfig {
	return fetchers.ClientConfig{
		BaseURL:           cfg.Upstream.BaseURL,
		APIKey:            cfg.Upstream.APIKey,
		EntityCode:        cfg.Upstream.EntityCode,
		StartYear:         cfg.Upstream.StartYear,
		IsAggregateSeries: cfg.Upstream.IsAggregateSeries,
		Timeout:           cfg.Upstream.Timeout,
		RetryCount:        cfg.Upstream.RetryCount,
		RetryWait:         cfg.Upstream.RetryWait,
	}
}

// Horizons returns the configured horizon bounds
func Horizons(cfg *config.Config) services.HorizonRange {
	return services.HorizonRange{
		Min:     cfg.Projection.MinHorizon,
		Default: cfg.Projection.DefaultHorizon,
		Max:     cfg.Projection.MaxHorizon,
	}
}

// APISource builds the upstream client, wrapped in the redis snapshot cache
// when one is enabled and reachable. The returned cache is nil otherwise.
// An unreachable redis is logged and the plain client is used.
func APISource(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (services.RecordSource, *cache.SnapshotCache) {
	client := fetchers.NewGenerationClient(ClientConfig(cfg), logger, metricsCollector)
	if !cfg.Redis.Enabled {
		return client, nil
	}

	redisClient, err := cache.NewRedisClient(ctx, cache.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn(ctx, "[CACHE_DISABLED] Redis unavailable, fetching without snapshot cache", logging.Fields{
			"addr":  cfg.Redis.Addr(),
			"error": err.Error(),
		})
		return client, nil
	}

	snapshots := cache.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL, logger, metricsCollector)
	key := cache.SnapshotKey(cfg.Upstream.EntityCode, cfg.Upstream.StartYear, cfg.Upstream.IsAggregateSeries)
	return services.NewCachedSource(client, snapshots, key, logger), snapshots
}
