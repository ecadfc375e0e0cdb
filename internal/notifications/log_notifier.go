package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier stands in for a mail provider and writes the confirmation to the log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendMembershipConfirmation(ctx context.Context, in MembershipConfirmationInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.membership_confirmation",
		"email", in.Email,
		"name", in.Name,
		"membership", in.Membership,
		"payment_id", in.PaymentID,
		"transaction_id", in.TransactionID,
	)
	return nil
}
