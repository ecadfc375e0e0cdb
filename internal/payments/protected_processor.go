package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/techdiscoveria/discoveria/internal/circuit"
)

// ProtectedProcessor bounds every processor call by a timeout and stops calling a
// processor that keeps failing.
type ProtectedProcessor struct {
	inner   Processor
	breaker *circuit.Breaker
}

func NewProtectedProcessor(inner Processor, cfg circuit.Config) *ProtectedProcessor {
	return &ProtectedProcessor{
		inner:   inner,
		breaker: circuit.NewBreaker(cfg),
	}
}

func (p *ProtectedProcessor) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if !p.breaker.Allow() {
		return Intent{}, fmt.Errorf("%w: %w", ErrProcessor, circuit.ErrOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.breaker.Timeout())
	defer cancel()

	intent, err := p.inner.CreateIntent(callCtx, req)
	if errors.Is(err, ErrRejected) {
		// the processor answered
		p.breaker.Done(nil)
	} else {
		p.breaker.Done(err)
	}

	if err != nil && !errors.Is(err, ErrProcessor) {
		err = fmt.Errorf("%w: %w", ErrProcessor, err)
	}
	return intent, err
}
