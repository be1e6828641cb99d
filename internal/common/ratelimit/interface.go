package ratelimit

import (
	"context"
	"time"
)

// Limiter is the request-rate ceiling enforced in front of rate-limited
// upstream APIs. Wait queues the caller until a slot is free (or the context
// expires); TryAcquire rejects immediately when the ceiling is reached.
type Limiter interface {
	Wait(ctx context.Context) error
	TryAcquire() bool

	// Monitoring
	Stats() map[string]interface{}
	Health() error
}

// RedisInterface defines the minimal Redis surface needed for distributed
// rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health() error
}
