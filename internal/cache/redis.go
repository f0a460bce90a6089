// Package cache provides a redis-backed cache for carrier data that is
// expensive to fetch and slow to change, such as pickup-point listings.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Redis wraps a redis client for carrier data caching.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *otelzap.Logger
}

// Config holds cache settings.
type Config struct {
	Addr string
	TTL  time.Duration
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, cfg Config, logger *otelzap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 6 * time.Hour
	}
	return &Redis{client: client, ttl: ttl, logger: logger}, nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the cached pickup points for a key, if present.
func (r *Redis) Get(ctx context.Context, key string) ([]carrier.PickupPoint, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var points []carrier.PickupPoint
	if err := json.Unmarshal(data, &points); err != nil {
		r.logger.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return points, true
}

// Set caches pickup points for a key. Cache write failures are logged and
// ignored.
func (r *Redis) Set(ctx context.Context, key string, points []carrier.PickupPoint) {
	data, err := json.Marshal(points)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
