package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoolsdaily/collector/internal/cache"
	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
)

func newTestClient(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := cache.New(config.RedisConfig{Addr: mr.Addr()}, logger.NewNopLogger())
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestClient_InvalidatePattern(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("pages:home", "cached"))
	require.NoError(t, mr.Set("pages:tools:1", "cached"))
	require.NoError(t, mr.Set("sessions:abc", "keep"))

	deleted, err := client.InvalidatePattern(ctx, "pages:*")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	assert.False(t, mr.Exists("pages:home"))
	assert.False(t, mr.Exists("pages:tools:1"))
	assert.True(t, mr.Exists("sessions:abc"))
}

func TestClient_InvalidatePattern_NoMatches(t *testing.T) {
	client, _ := newTestClient(t)

	deleted, err := client.InvalidatePattern(context.Background(), "pages:*")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestClient_Allow(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := client.Allow(ctx, "ratelimit:collect", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := client.Allow(ctx, "ratelimit:collect", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request should be rejected")

	// Window expiry resets the counter.
	mr.FastForward(time.Minute + time.Second)
	allowed, err = client.Allow(ctx, "ratelimit:collect", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestClient_Disabled(t *testing.T) {
	client := cache.New(config.RedisConfig{}, logger.NewNopLogger())
	ctx := context.Background()

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(ctx))

	deleted, err := client.InvalidatePattern(ctx, "pages:*")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Without Redis the limiter is permissive.
	for i := 0; i < 10; i++ {
		allowed, allowErr := client.Allow(ctx, "key", 1, time.Minute)
		require.NoError(t, allowErr)
		assert.True(t, allowed)
	}
}
