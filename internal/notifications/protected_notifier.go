package notifications

import (
	"context"

	"github.com/techdiscoveria/discoveria/internal/circuit"
)

type ProtectedNotifier struct {
	inner   Notifier
	breaker *circuit.Breaker
}

func NewProtectedNotifier(inner Notifier, cfg circuit.Config) *ProtectedNotifier {
	return &ProtectedNotifier{
		inner:   inner,
		breaker: circuit.NewBreaker(cfg),
	}
}

func (n *ProtectedNotifier) SendMembershipConfirmation(ctx context.Context, input MembershipConfirmationInput) error {
	// fail fast while the provider is known to be down
	if !n.breaker.Allow() {
		return circuit.ErrOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.breaker.Timeout())
	defer cancel()

	err := n.inner.SendMembershipConfirmation(sendCtx, input)
	n.breaker.Done(err)

	return err
}
