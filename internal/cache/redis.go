package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/circuitbreaker"
	"github.com/tradeops-labs/orderscope/internal/metrics"
)

// Redis is the shared finding cache backed by Redis, wrapped in a circuit
// breaker so cache outages degrade to misses.
type Redis struct {
	cli    *circuitbreaker.RedisWrapper
	logger *zap.Logger
}

// NewRedis connects to Redis at addr and verifies connectivity.
func NewRedis(addr string, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	wrapper := circuitbreaker.NewRedisWrapper(rc, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := wrapper.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{cli: wrapper, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.cli.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Finding cache read failed", zap.Error(err))
		}
		metrics.CacheMisses.Inc()
		return "", false
	}
	metrics.CacheHits.Inc()
	return v, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.cli.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("Finding cache write failed", zap.Error(err))
	}
}
