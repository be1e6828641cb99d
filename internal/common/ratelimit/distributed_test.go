package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeRedis implements RedisInterface with an in-memory rolling window
type fakeRedis struct {
	mu      sync.Mutex
	entries []time.Time
	healthy bool
	failing bool
}

func (f *fakeRedis) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if f.failing {
		return false, 0, fmt.Errorf("redis unavailable")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-window)
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.After(cutoff) {
			kept = append(kept, e)
		}
	}
	f.entries = kept

	if len(f.entries) >= limit {
		return false, len(f.entries), nil
	}
	f.entries = append(f.entries, time.Now())
	return true, len(f.entries) - 1, nil
}

func (f *fakeRedis) Health() error {
	if !f.healthy {
		return fmt.Errorf("unhealthy")
	}
	return nil
}

func TestDistributedLimiter_TryAcquire(t *testing.T) {
	rdb := &fakeRedis{healthy: true}
	limiter, err := NewDistributedLimiter(Config{
		Enabled:     true,
		MaxRequests: 3,
		Window:      time.Minute,
		Type:        BackendRedis,
	}, rdb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if limiter.TryAcquire() {
		t.Error("request over the ceiling should be rejected")
	}
}

func TestDistributedLimiter_FailsOpen(t *testing.T) {
	rdb := &fakeRedis{failing: true}
	limiter, err := NewDistributedLimiter(Config{
		Enabled:     true,
		MaxRequests: 1,
		Window:      time.Minute,
		Type:        BackendRedis,
	}, rdb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !limiter.TryAcquire() {
		t.Error("redis failure should not block requests")
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("Wait should fail open, got %v", err)
	}
}

func TestDistributedLimiter_WaitHonorsContext(t *testing.T) {
	rdb := &fakeRedis{healthy: true}
	limiter, err := NewDistributedLimiter(Config{
		Enabled:     true,
		MaxRequests: 1,
		Window:      time.Hour,
		Type:        BackendRedis,
	}, rdb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exhaust the single slot
	if !limiter.TryAcquire() {
		t.Fatal("first request should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait should return the context error once the deadline passes")
	}
}

func TestDistributedLimiter_RequiresClient(t *testing.T) {
	_, err := NewDistributedLimiter(Config{
		Enabled:     true,
		MaxRequests: 1,
		Window:      time.Minute,
		Type:        BackendRedis,
	}, nil)
	if err == nil {
		t.Error("expected error for nil redis client")
	}
}
