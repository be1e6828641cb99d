package ratelimit

import (
	"fmt"
)

// New creates a rate limiter for the configured backend
func New(config Config, redisClient ...RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// A disabled limiter never consults a backend
	if !config.Enabled {
		return NewLocalLimiter(config)
	}

	switch config.Type {
	case BackendLocal:
		return NewLocalLimiter(config)
	case BackendRedis:
		if len(redisClient) == 0 || redisClient[0] == nil {
			return nil, fmt.Errorf("redis client is required for distributed rate limiter")
		}
		return NewDistributedLimiter(config, redisClient[0])
	default:
		return nil, fmt.Errorf("unsupported rate limiter backend type: %s", config.Type)
	}
}
