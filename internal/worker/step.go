package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/notifications"
)

// ProcessOne claims one due upgrade and applies it. processed is false when nothing was due.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	p, err := w.payments.ClaimPendingUpgrade(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, payment.ErrNoPendingUpgrade) {
			return false, nil
		}
		return false, fmt.Errorf("claim upgrade: %w", err)
	}

	w.stats.IncClaimed()
	if w.prom != nil {
		w.prom.UpgradesInFlight.Inc()
		defer w.prom.UpgradesInFlight.Dec()
	}

	start := w.now()
	log := w.log.With("payment_id", p.ID, "email", p.Email, "attempt", p.UpgradeAttempts+1)

	if err := w.apply(ctx, p); err != nil {
		w.observe(start, "retry")
		w.handleFailure(ctx, p, err)
		return true, nil
	}

	if err := w.payments.MarkUpgradeApplied(ctx, p.ID); err != nil {
		// membership is already set; the stale lock is requeued and the retry is a no-op
		w.observe(start, "retry")
		return true, fmt.Errorf("mark upgrade applied: %w", err)
	}

	w.observe(start, "applied")
	w.stats.IncApplied()
	w.prom.IncMembershipUpgrade("reconciler", "applied")
	log.Info("membership upgrade applied")

	w.confirm(ctx, p)
	return true, nil
}

func (w *Worker) apply(ctx context.Context, p payment.Payment) error {
	res, err := w.users.SetMembership(ctx, p.Email, user.MembershipSubscribed)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return payment.ErrPayerNotFound
	}
	return nil
}

func (w *Worker) handleFailure(ctx context.Context, p payment.Payment, cause error) {
	attempt := p.UpgradeAttempts + 1
	log := w.log.With("payment_id", p.ID, "attempt", attempt, "err", cause)

	if attempt >= w.cfg.MaxAttempts {
		w.stats.IncFailed()
		w.prom.IncMembershipUpgrade("reconciler", "failed")

		if err := w.payments.MarkUpgradeFailed(ctx, p.ID, cause.Error()); err != nil {
			log.Error("mark upgrade failed", "mark_err", err)
			return
		}
		log.Error("membership upgrade gave up")
		return
	}

	w.stats.IncRetried()
	w.prom.IncMembershipUpgrade("reconciler", "retry")

	runAt := w.now().UTC().Add(w.backoff(p.UpgradeAttempts))
	if err := w.payments.RescheduleUpgrade(ctx, p.ID, runAt, cause.Error()); err != nil {
		log.Error("reschedule upgrade failed", "reschedule_err", err)
		return
	}
	log.Warn("membership upgrade rescheduled", "run_at", runAt)
}

func (w *Worker) observe(start time.Time, result string) {
	d := w.now().Sub(start)
	w.stats.ObserveDuration(d)
	if w.prom != nil {
		w.prom.UpgradeDuration.WithLabelValues(result).Observe(d.Seconds())
	}
}

func (w *Worker) confirm(ctx context.Context, p payment.Payment) {
	if w.notifier == nil {
		return
	}

	err := w.notifier.SendMembershipConfirmation(ctx, notifications.MembershipConfirmationInput{
		Email:         p.Email,
		Name:          p.Name,
		Membership:    user.MembershipSubscribed,
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
	})
	if err != nil {
		w.log.Warn("membership confirmation not sent", "payment_id", p.ID, "err", err)
	}
}
