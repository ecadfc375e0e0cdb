// Package payments talks to the card payment processor.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrProcessor wraps every failure reported by (or while reaching) the processor.
var ErrProcessor = errors.New("payment processor error")

var ErrNotConfigured = errors.New("payment processor not configured")

// ErrRejected marks a processor error caused by the request itself. It says nothing
// about processor availability.
var ErrRejected = errors.New("payment rejected by processor")

var ErrAmountTooSmall = errors.New("amount below processor minimum")

// MinimumAmount is the smallest card charge the processor accepts, in minor units.
const MinimumAmount int64 = 50

type IntentRequest struct {
	Amount             int64 // minor units
	Currency           string
	PaymentMethodTypes []string
}

type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// ToMinorUnits converts a major-unit price into cents, rounding half away from zero.
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CardIntent is the request issued for a membership checkout.
func CardIntent(price float64) IntentRequest {
	return IntentRequest{
		Amount:             ToMinorUnits(price),
		Currency:           "usd",
		PaymentMethodTypes: []string{"card"},
	}
}

// Check rejects requests the processor would refuse anyway.
func (r IntentRequest) Check() error {
	if r.Amount < MinimumAmount {
		return fmt.Errorf("%w: %d < %d", ErrAmountTooSmall, r.Amount, MinimumAmount)
	}
	return nil
}

// DisabledProcessor is used when no processor key is configured.
type DisabledProcessor struct{}

func (DisabledProcessor) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	return Intent{}, errors.Join(ErrProcessor, ErrNotConfigured)
}
