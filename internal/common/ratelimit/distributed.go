package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// distributedLimiter enforces the ceiling across processes using shared
// counters in Redis. Counter updates are safe under concurrent in-flight
// callers; the rolling window lives server-side.
type distributedLimiter struct {
	config Config
	redis  RedisInterface
}

// NewDistributedLimiter creates a redis-backed rate limiter
func NewDistributedLimiter(config Config, redisClient RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}

	return &distributedLimiter{
		config: config,
		redis:  redisClient,
	}, nil
}

// TryAcquire attempts to acquire a slot without blocking. Redis failures
// fail open: the upstream provider enforces its own limit, degrading to
// unthrottled is preferable to dropping enrichment work.
func (rl *distributedLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allowed, _, err := rl.redis.CheckRateLimit(ctx, rl.counterKey(), rl.config.MaxRequests, rl.config.Window)
	if err != nil {
		return true
	}
	return allowed
}

// Wait blocks until a slot is free or the context expires, polling the
// shared counter at roughly the refill cadence of the window.
func (rl *distributedLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}

	interval := rl.config.Window / time.Duration(rl.config.MaxRequests)
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	for {
		allowed, _, err := rl.redis.CheckRateLimit(ctx, rl.counterKey(), rl.config.MaxRequests, rl.config.Window)
		if err != nil {
			// Fail open, same rationale as TryAcquire
			return nil
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Stats returns rate limiter statistics
func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":         "redis",
		"enabled":      rl.config.Enabled,
		"max_requests": rl.config.MaxRequests,
		"window":       rl.config.Window.String(),
		"key":          rl.counterKey(),
	}
}

// Health checks the backing redis connection
func (rl *distributedLimiter) Health() error {
	return rl.redis.Health()
}

func (rl *distributedLimiter) counterKey() string {
	return rl.config.KeyPrefix + "global"
}

var _ Limiter = (*distributedLimiter)(nil)
