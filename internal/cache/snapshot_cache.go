package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

const keyPrefix = "enerlyze:snapshot"

// Config holds redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// SnapshotKey names the cached payload for one upstream query
func SnapshotKey(entityCode string, startYear int, aggregate bool) string {
	return fmt.Sprintf("%s:%s:%d:%t", keyPrefix, entityCode, startYear, aggregate)
}

// SnapshotCache stores raw upstream record batches in redis with a TTL.
// Only raw input is cached; everything derived from it is recomputed.
type SnapshotCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewSnapshotCache creates a cache over an existing client
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SnapshotCache {
	return &SnapshotCache{
		client:  client,
		ttl:     ttl,
		logger:  logger.WithComponent("snapshot_cache"),
		metrics: metricsCollector,
	}
}

// Get returns the cached batch; found is false on a miss
func (c *SnapshotCache) Get(ctx context.Context, key string) (*models.RecordBatch, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.CacheMissesTotal.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}

	var batch models.RecordBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Put
		c.metrics.CacheMissesTotal.Inc()
		c.logger.Warn(ctx, "[CACHE_CORRUPT] Discarding undecodable snapshot", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false, nil
	}

	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug(ctx, "[CACHE_HIT] Snapshot served from redis", logging.Fields{
		"key":     key,
		"records": len(batch.Records),
	})
	return &batch, true, nil
}

// Put stores the batch under key for the configured TTL
func (c *SnapshotCache) Put(ctx context.Context, key string, batch *models.RecordBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}

	c.logger.Debug(ctx, "[CACHE_PUT] Snapshot stored", logging.Fields{
		"key":         key,
		"records":     len(batch.Records),
		"ttl_seconds": c.ttl.Seconds(),
	})
	return nil
}

// HealthCheck pings redis
func (c *SnapshotCache) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
