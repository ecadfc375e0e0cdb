package notifications

import "context"

type MembershipConfirmationInput struct {
	Email         string
	Name          string
	Membership    string
	PaymentID     string
	TransactionID string
}

type Notifier interface {
	SendMembershipConfirmation(ctx context.Context, input MembershipConfirmationInput) error
}
