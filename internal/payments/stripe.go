package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if rejected(stripeErr) {
				return Intent{}, fmt.Errorf("%w: %w: %s (%s)", ErrProcessor, ErrRejected, stripeErr.Msg, stripeErr.Code)
			}
			return Intent{}, fmt.Errorf("%w: %s (%s)", ErrProcessor, stripeErr.Msg, stripeErr.Code)
		}
		return Intent{}, fmt.Errorf("%w: %v", ErrProcessor, err)
	}

	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// rejected reports whether Stripe refused the request on its merits. Auth, rate limit
// and server errors still count against the processor.
func rejected(e *stripe.Error) bool {
	switch e.HTTPStatusCode {
	case http.StatusBadRequest, http.StatusPaymentRequired:
		return true
	}
	return e.Type == stripe.ErrorTypeCard
}
