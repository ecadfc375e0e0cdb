package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(Config{FailureThreshold: 2, Cooldown: time.Minute})
	b.now = func() time.Time { return clock }

	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.Done(boom)
	}
	require.Equal(t, "open", b.State())
	require.False(t, b.Allow())

	clock = clock.Add(time.Minute)
	require.True(t, b.Allow())
	require.Equal(t, "half_open", b.State())
	// only one trial call at a time
	require.False(t, b.Allow())

	b.Done(nil)
	require.Equal(t, "closed", b.State())
	require.True(t, b.Allow())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(Config{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return clock }

	require.True(t, b.Allow())
	b.Done(errors.New("boom"))
	require.Equal(t, "open", b.State())

	clock = clock.Add(time.Second)
	require.True(t, b.Allow())
	b.Done(errors.New("still down"))
	require.Equal(t, "open", b.State())
	require.False(t, b.Allow())
}

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker(Config{})
	require.Equal(t, 3*time.Second, b.Timeout())
	require.Equal(t, "closed", b.State())
}
