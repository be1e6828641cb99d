package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("defaults applied", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		config := &Config{Address: mr.Addr()}
		client, err := NewClient(config)
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, 10, config.PoolSize)
	})

	t.Run("unreachable server", func(t *testing.T) {
		client, err := NewClient(&Config{Address: "127.0.0.1:1"})
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}

func TestClient_Health(t *testing.T) {
	client, mr := setupTestRedis(t)

	assert.NoError(t, client.Health())

	mr.Close()
	assert.Error(t, client.Health())
}

func TestClient_CheckRateLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	t.Run("allows requests under the limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			allowed, count, err := client.CheckRateLimit(ctx, "jasper:under", 10, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, i, count)
		}
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		limit := 3
		var lastAllowed bool
		for i := 0; i < limit+1; i++ {
			var err error
			lastAllowed, _, err = client.CheckRateLimit(ctx, "jasper:over", limit, time.Minute)
			require.NoError(t, err)
		}
		assert.False(t, lastAllowed)
	})

	t.Run("separate keys have separate counters", func(t *testing.T) {
		_, _, err := client.CheckRateLimit(ctx, "key:a", 1, time.Minute)
		require.NoError(t, err)

		allowed, count, err := client.CheckRateLimit(ctx, "key:b", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 0, count)
	})
}
