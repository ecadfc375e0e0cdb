package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_Expiry(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Minute)
	c.now = func() time.Time { return clock }

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, v)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Clear()

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestCache_DisabledIsNilSafe(t *testing.T) {
	c := New(0)
	require.Nil(t, c)

	c.Set("a", 1)
	_, ok := c.Get("a")
	require.False(t, ok)
	c.Clear()
}

func TestCache_TTL(t *testing.T) {
	require.Equal(t, time.Minute, New(time.Minute).TTL())
	require.Zero(t, New(0).TTL())
}
