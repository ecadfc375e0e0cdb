package redisclient

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis tests")
	}

	client := New(Config{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()))

	rl := NewRateLimiter(client, 2, time.Minute)
	key := fmt.Sprintf("test:%d", time.Now().UnixNano())

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, retry, err := rl.Allow(context.Background(), key)
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))
	require.LessOrEqual(t, retry, time.Minute)
}

func TestRateLimiter_DisabledWhenLimitZero(t *testing.T) {
	rl := NewRateLimiter(nil, 0, time.Minute)

	ok, _, err := rl.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
}
