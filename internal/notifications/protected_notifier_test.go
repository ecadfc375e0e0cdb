package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/techdiscoveria/discoveria/internal/circuit"
)

type fakeNotifier struct {
	calls int
	err   error
	delay time.Duration
}

func (f *fakeNotifier) SendMembershipConfirmation(ctx context.Context, in MembershipConfirmationInput) error {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestProtectedNotifier_OpensAfterFailures(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, circuit.Config{FailureThreshold: 2, Cooldown: time.Hour})

	in := MembershipConfirmationInput{Email: "a@x.com", Membership: "Subscribed"}

	require.Error(t, n.SendMembershipConfirmation(context.Background(), in))
	require.Error(t, n.SendMembershipConfirmation(context.Background(), in))

	err := n.SendMembershipConfirmation(context.Background(), in)
	require.ErrorIs(t, err, circuit.ErrOpen)
	require.Equal(t, 2, inner.calls)
}

func TestProtectedNotifier_EnforcesTimeout(t *testing.T) {
	inner := &fakeNotifier{delay: time.Second}
	n := NewProtectedNotifier(inner, circuit.Config{Timeout: 20 * time.Millisecond})

	err := n.SendMembershipConfirmation(context.Background(), MembershipConfirmationInput{Email: "a@x.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	require.NoError(t, n.SendMembershipConfirmation(context.Background(), MembershipConfirmationInput{Email: "a@x.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.SendMembershipConfirmation(ctx, MembershipConfirmationInput{}), context.Canceled)
}
