package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SnapshotCache, *miniredis.Miniredis, *metrics.Collector) {
	t.Helper()

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { client.Close() })

	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	return NewSnapshotCache(client, ttl, logging.NewNopLogger(), collector), redisServer, collector
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "enerlyze:snapshot:BRA:1990:false", SnapshotKey("BRA", 1990, false))
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	c, _, collector := newTestCache(t, time.Hour)
	ctx := context.Background()
	key := SnapshotKey("BRA", 1990, false)

	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	batch := &models.RecordBatch{
		Source: "ember-api",
		Records: []models.RawRecord{
			{Series: "Solar", Date: "2019", GenerationTWh: "10"},
			{Series: "Wind", Date: "2020", GenerationTWh: "7.5"},
		},
		Malformed: 1,
		FetchedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.Put(ctx, key, batch))

	got, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, batch.Records, got.Records)
	assert.Equal(t, 1, got.Malformed)
	assert.True(t, batch.FetchedAt.Equal(got.FetchedAt))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheMissesTotal))
}

func TestSnapshotCache_Expires(t *testing.T) {
	c, redisServer, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := SnapshotKey("BRA", 1990, false)

	require.NoError(t, c.Put(ctx, key, &models.RecordBatch{Source: "ember-api"}))
	assert.Equal(t, time.Minute, redisServer.TTL(key))

	redisServer.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotCache_CorruptEntryIsMiss(t *testing.T) {
	c, redisServer, _ := newTestCache(t, time.Minute)
	key := SnapshotKey("BRA", 1990, false)

	require.NoError(t, redisServer.Set(key, "{not json"))

	_, found, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotCache_HealthCheck(t *testing.T) {
	c, redisServer, _ := newTestCache(t, time.Minute)
	assert.NoError(t, c.HealthCheck(context.Background()))

	redisServer.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNewRedisClient(t *testing.T) {
	redisServer := miniredis.RunT(t)
	addr := redisServer.Addr()

	client, err := NewRedisClient(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	client.Close()

	redisServer.Close()
	_, err = NewRedisClient(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
