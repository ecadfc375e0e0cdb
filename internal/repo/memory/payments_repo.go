package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techdiscoveria/discoveria/internal/domain/payment"
)

// PaymentsRepo shares the users repo lock so Record is all-or-nothing.
type PaymentsRepo struct {
	users *UsersRepo
	mu    sync.Mutex
	items map[string]payment.Payment
	order []string
}

func NewPaymentsRepo(users *UsersRepo) *PaymentsRepo {
	return &PaymentsRepo{
		users: users,
		items: make(map[string]payment.Payment),
	}
}

func (r *PaymentsRepo) Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.NewString()
	p.UpgradeStatus = payment.UpgradeApplied

	if res := r.users.setMembershipLocked(p.Email, membership); res.MatchedCount == 0 {
		p.DeferUpgrade(payment.ErrPayerNotFound)
	}
	r.items[p.ID] = p
	r.order = append(r.order, p.ID)

	return p, nil
}

func (r *PaymentsRepo) ListByEmail(ctx context.Context, email string) ([]payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]payment.Payment, 0)
	for _, id := range slices.Backward(r.order) {
		if p := r.items[id]; p.Email == email {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PaymentsRepo) ClaimPendingUpgrade(ctx context.Context, workerID string) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range r.order {
		p := r.items[id]
		if p.UpgradeStatus != payment.UpgradePending || p.LockedBy != nil {
			continue
		}
		if p.NextUpgradeAt != nil && p.NextUpgradeAt.After(now) {
			continue
		}

		p.LockedBy = &workerID
		p.LockedAt = &now
		r.items[id] = p
		return p, nil
	}

	return payment.Payment{}, payment.ErrNoPendingUpgrade
}

func (r *PaymentsRepo) MarkUpgradeApplied(ctx context.Context, id string) error {
	return r.update(id, func(p *payment.Payment) {
		p.UpgradeStatus = payment.UpgradeApplied
		p.LastUpgradeError = nil
		p.NextUpgradeAt = nil
	})
}

func (r *PaymentsRepo) RescheduleUpgrade(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.update(id, func(p *payment.Payment) {
		p.UpgradeAttempts++
		p.NextUpgradeAt = &runAt
		p.LastUpgradeError = &errMsg
	})
}

func (r *PaymentsRepo) MarkUpgradeFailed(ctx context.Context, id string, errMsg string) error {
	return r.update(id, func(p *payment.Payment) {
		p.UpgradeStatus = payment.UpgradeFailed
		p.UpgradeAttempts++
		p.LastUpgradeError = &errMsg
	})
}

func (r *PaymentsRepo) RequeueStaleUpgrades(ctx context.Context, lockTTL time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-lockTTL)
	var n int64
	for id, p := range r.items {
		if p.UpgradeStatus == payment.UpgradePending && p.LockedAt != nil && p.LockedAt.Before(cutoff) {
			p.LockedBy = nil
			p.LockedAt = nil
			r.items[id] = p
			n++
		}
	}
	return n, nil
}

// Put stores p as-is. Used to seed pending upgrades in tests.
func (r *PaymentsRepo) Put(p payment.Payment) payment.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := r.items[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.items[p.ID] = p
	return p
}

func (r *PaymentsRepo) update(id string, fn func(p *payment.Payment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return payment.ErrNotFound
	}

	fn(&p)
	p.LockedBy = nil
	p.LockedAt = nil
	r.items[id] = p
	return nil
}
