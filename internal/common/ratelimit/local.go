package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// localLimiter implements the ceiling in-process using golang.org/x/time/rate.
// The window-based config is converted to a token bucket refilling at
// MaxRequests/Window with a burst of MaxRequests, which keeps any rolling
// window at or under the configured ceiling.
type localLimiter struct {
	config  Config
	limiter *rate.Limiter
}

// NewLocalLimiter creates a new in-process rate limiter
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	perSecond := float64(config.MaxRequests) / config.Window.Seconds()

	return &localLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(perSecond), config.MaxRequests),
	}, nil
}

// Wait blocks until a request can be made according to the rate limit
func (rl *localLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a slot without blocking
func (rl *localLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.limiter.Allow()
}

// Stats returns rate limiter statistics
func (rl *localLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":             "local",
		"enabled":          rl.config.Enabled,
		"max_requests":     rl.config.MaxRequests,
		"window":           rl.config.Window.String(),
		"available_tokens": rl.limiter.Tokens(),
	}
}

// Health checks if the rate limiter is working properly
func (rl *localLimiter) Health() error {
	// Local rate limiter is always healthy
	return nil
}

var _ Limiter = (*localLimiter)(nil)
