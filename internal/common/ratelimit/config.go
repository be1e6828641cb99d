package ratelimit

import (
	"fmt"
	"time"
)

// BackendType defines the rate limiter backend
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendRedis BackendType = "redis"
)

// Config represents rate limiter configuration as a request ceiling over a
// rolling window, e.g. 50 requests per 60s.
type Config struct {
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
	Enabled     bool          `json:"enabled"`

	Type BackendType `json:"type"`

	// KeyPrefix namespaces counters in the redis backend
	KeyPrefix string `json:"key_prefix,omitempty"`
}

// Validate validates the rate limiter configuration and fills defaults
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxRequests <= 0 {
		return fmt.Errorf("max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}

	if c.Type == "" {
		c.Type = BackendLocal
	}

	switch c.Type {
	case BackendLocal:
	case BackendRedis:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ratelimit:"
		}
	default:
		return fmt.Errorf("unsupported rate limiter backend type: %s", c.Type)
	}

	return nil
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		MaxRequests: 50,
		Window:      time.Minute,
		Enabled:     true,
		Type:        BackendLocal,
	}
}
