package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/observability"
)

const paymentColumns = `id, email, name, price, currency, transaction_id, date,
	upgrade_status, upgrade_attempts, next_upgrade_at, last_upgrade_error,
	locked_by, locked_at, created_at`

type PaymentsRepo struct {
	base
}

func NewPaymentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{base{pool: pool, prom: prom}}
}

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.Email, &p.Name, &p.Price, &p.Currency, &p.TransactionID, &p.Date,
		&p.UpgradeStatus, &p.UpgradeAttempts, &p.NextUpgradeAt, &p.LastUpgradeError,
		&p.LockedBy, &p.LockedAt, &p.CreatedAt,
	)
	return p, err
}

// Record upgrades the payer and inserts the payment in one transaction. A payer with no
// user record leaves the upgrade pending for the reconciler.
func (r *PaymentsRepo) Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error) {
	p.ID = uuid.NewString()

	err := r.observe("payments.record", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			p.UpgradeStatus = payment.UpgradeApplied

			tag, err := tx.Exec(ctx, `
			UPDATE users SET membership = $2, updated_at = NOW()
			WHERE email = $1 AND membership <> $2
		`, p.Email, membership)
			if err != nil {
				return err
			}

			if tag.RowsAffected() == 0 {
				var exists bool
				err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, p.Email).Scan(&exists)
				if err != nil {
					return err
				}
				if !exists {
					p.DeferUpgrade(payment.ErrPayerNotFound)
				}
			}

			_, err = tx.Exec(ctx, `
			INSERT INTO payments (`+paymentColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		`, p.ID, p.Email, p.Name, p.Price, p.Currency, p.TransactionID, p.Date,
				p.UpgradeStatus, p.UpgradeAttempts, p.NextUpgradeAt, p.LastUpgradeError,
				p.LockedBy, p.LockedAt, p.CreatedAt)
			return err
		})
	})

	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (r *PaymentsRepo) ListByEmail(ctx context.Context, email string) ([]payment.Payment, error) {
	var out []payment.Payment

	err := r.observe("payments.list_by_email", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE email = $1 ORDER BY created_at DESC, id ASC`, email)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]payment.Payment, 0)
		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentsRepo) ClaimPendingUpgrade(ctx context.Context, workerID string) (payment.Payment, error) {
	var p payment.Payment

	err := r.observe("payments.claim_pending_upgrade", func() error {
		var err error
		p, err = scanPayment(r.pool.QueryRow(ctx, `
		WITH next AS (
			SELECT id
			FROM payments
			WHERE upgrade_status = 'pending'
			  AND locked_at IS NULL
			  AND (next_upgrade_at IS NULL OR next_upgrade_at <= NOW())
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE payments
		SET locked_at = NOW(),
		    locked_by = $1
		WHERE id = (SELECT id FROM next)
		RETURNING `+paymentColumns, workerID))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.Payment{}, payment.ErrNoPendingUpgrade
		}
		return payment.Payment{}, err
	}
	return p, nil
}

func (r *PaymentsRepo) MarkUpgradeApplied(ctx context.Context, id string) error {
	return r.exec(ctx, "payments.mark_upgrade_applied", `
		UPDATE payments
		SET upgrade_status = 'applied',
		    next_upgrade_at = NULL,
		    last_upgrade_error = NULL,
		    locked_at = NULL,
		    locked_by = NULL
		WHERE id = $1
	`, id)
}

func (r *PaymentsRepo) RescheduleUpgrade(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.exec(ctx, "payments.reschedule_upgrade", `
		UPDATE payments
		SET upgrade_attempts = upgrade_attempts + 1,
		    next_upgrade_at = $2,
		    last_upgrade_error = $3,
		    locked_at = NULL,
		    locked_by = NULL
		WHERE id = $1
	`, id, runAt, errMsg)
}

func (r *PaymentsRepo) MarkUpgradeFailed(ctx context.Context, id string, errMsg string) error {
	return r.exec(ctx, "payments.mark_upgrade_failed", `
		UPDATE payments
		SET upgrade_status = 'failed',
		    upgrade_attempts = upgrade_attempts + 1,
		    last_upgrade_error = $2,
		    locked_at = NULL,
		    locked_by = NULL
		WHERE id = $1
	`, id, errMsg)
}

func (r *PaymentsRepo) RequeueStaleUpgrades(ctx context.Context, lockTTL time.Duration) (int64, error) {
	var n int64

	err := r.observe("payments.requeue_stale_upgrades", func() error {
		tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET locked_at = NULL,
		    locked_by = NULL
		WHERE upgrade_status = 'pending'
		  AND locked_at IS NOT NULL
		  AND locked_at < $1
	`, time.Now().UTC().Add(-lockTTL))
		n = tag.RowsAffected()
		return err
	})

	return n, err
}

func (r *PaymentsRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, sql, args...)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}
