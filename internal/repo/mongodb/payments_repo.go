package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type paymentDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	Name             string             `bson:"name,omitempty"`
	Price            float64            `bson:"price"`
	Currency         string             `bson:"currency"`
	TransactionID    string             `bson:"transactionId"`
	Date             time.Time          `bson:"date"`
	UpgradeStatus    string             `bson:"upgradeStatus"`
	UpgradeAttempts  int                `bson:"upgradeAttempts"`
	NextUpgradeAt    *time.Time         `bson:"nextUpgradeAt"`
	LastUpgradeError *string            `bson:"lastUpgradeError"`
	LockedBy         *string            `bson:"lockedBy"`
	LockedAt         *time.Time         `bson:"lockedAt"`
	CreatedAt        time.Time          `bson:"createdAt"`
}

func newPaymentDoc(p payment.Payment) paymentDoc {
	return paymentDoc{
		Email:            p.Email,
		Name:             p.Name,
		Price:            p.Price,
		Currency:         p.Currency,
		TransactionID:    p.TransactionID,
		Date:             p.Date,
		UpgradeStatus:    p.UpgradeStatus,
		UpgradeAttempts:  p.UpgradeAttempts,
		NextUpgradeAt:    p.NextUpgradeAt,
		LastUpgradeError: p.LastUpgradeError,
		CreatedAt:        p.CreatedAt,
	}
}

func (d paymentDoc) toDomain() payment.Payment {
	return payment.Payment{
		ID:               d.ID.Hex(),
		Email:            d.Email,
		Name:             d.Name,
		Price:            d.Price,
		Currency:         d.Currency,
		TransactionID:    d.TransactionID,
		Date:             d.Date,
		UpgradeStatus:    d.UpgradeStatus,
		UpgradeAttempts:  d.UpgradeAttempts,
		NextUpgradeAt:    d.NextUpgradeAt,
		LastUpgradeError: d.LastUpgradeError,
		LockedBy:         d.LockedBy,
		LockedAt:         d.LockedAt,
		CreatedAt:        d.CreatedAt,
	}
}

type PaymentsRepo struct {
	base
	client       *mongo.Client
	coll         *mongo.Collection
	users        *UsersRepo
	transactions bool
}

func NewPaymentsRepo(client *mongo.Client, coll *mongo.Collection, users *UsersRepo, transactions bool, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{
		base:         base{prom: prom},
		client:       client,
		coll:         coll,
		users:        users,
		transactions: transactions,
	}
}

// inlineLockOwner holds the claim on a payment while Record upgrades the payer itself.
const inlineLockOwner = "record-inline"

// Record stores the payment and upgrades the payer. With transactions enabled both writes
// commit together. Otherwise the payment is inserted already claimed, the upgrade is tried
// once inline and a failure is released to the reconciler.
func (r *PaymentsRepo) Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error) {
	if r.transactions {
		return r.recordTx(ctx, p, membership)
	}

	now := time.Now().UTC()
	owner := inlineLockOwner

	doc := newPaymentDoc(p)
	doc.ID = primitive.NewObjectID()
	doc.UpgradeStatus = payment.UpgradePending
	doc.LockedBy = &owner
	doc.LockedAt = &now

	err := r.observe("payments.insert", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return payment.Payment{}, err
	}

	saved := doc.toDomain()

	res, err := r.users.SetMembership(ctx, p.Email, membership)
	if err == nil && res.MatchedCount == 0 {
		err = payment.ErrPayerNotFound
	}
	if err != nil {
		saved.DeferUpgrade(err)
		if rerr := r.RescheduleUpgrade(ctx, saved.ID, now, err.Error()); rerr != nil {
			// the stale claim is requeued after the lock TTL
			slog.Default().ErrorContext(ctx, "release inline upgrade claim", "payment_id", saved.ID, "err", rerr)
		}
		return saved, nil
	}

	if err := r.MarkUpgradeApplied(ctx, saved.ID); err != nil {
		// membership is set; the reconciler finishes the row after the lock TTL
		slog.Default().ErrorContext(ctx, "mark inline upgrade applied", "payment_id", saved.ID, "err", err)
		saved.LockedBy, saved.LockedAt = nil, nil
		return saved, nil
	}

	saved.UpgradeStatus = payment.UpgradeApplied
	saved.LockedBy, saved.LockedAt = nil, nil
	return saved, nil
}

func (r *PaymentsRepo) recordTx(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error) {
	doc := newPaymentDoc(p)
	doc.ID = primitive.NewObjectID()

	err := r.observe("payments.record_tx", func() error {
		sess, err := r.client.StartSession()
		if err != nil {
			return err
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			res, err := r.users.coll.UpdateOne(sc,
				bson.D{{Key: "email", Value: p.Email}},
				bson.D{{Key: "$set", Value: bson.D{
					{Key: "Membership", Value: membership},
					{Key: "updatedAt", Value: time.Now().UTC()},
				}}},
			)
			if err != nil {
				return nil, err
			}

			doc.UpgradeStatus = payment.UpgradeApplied
			doc.LastUpgradeError = nil
			if res.MatchedCount == 0 {
				msg := payment.ErrPayerNotFound.Error()
				doc.UpgradeStatus = payment.UpgradePending
				doc.LastUpgradeError = &msg
			}

			_, err = r.coll.InsertOne(sc, doc)
			return nil, err
		})
		return err
	})

	if err != nil {
		return payment.Payment{}, fmt.Errorf("record payment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PaymentsRepo) ListByEmail(ctx context.Context, email string) ([]payment.Payment, error) {
	var docs []paymentDoc

	err := r.observe("payments.list_by_email", func() error {
		cur, err := r.coll.Find(ctx,
			bson.D{{Key: "email", Value: email}},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}),
		)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}

	out := make([]payment.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *PaymentsRepo) ClaimPendingUpgrade(ctx context.Context, workerID string) (payment.Payment, error) {
	now := time.Now().UTC()

	filter := bson.D{
		{Key: "upgradeStatus", Value: payment.UpgradePending},
		{Key: "lockedAt", Value: nil},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "nextUpgradeAt", Value: nil}},
			bson.D{{Key: "nextUpgradeAt", Value: bson.D{{Key: "$lte", Value: now}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "lockedAt", Value: now},
		{Key: "lockedBy", Value: workerID},
	}}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var doc paymentDoc
	err := r.observe("payments.claim_pending_upgrade", func() error {
		return r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return payment.Payment{}, payment.ErrNoPendingUpgrade
		}
		return payment.Payment{}, err
	}
	return doc.toDomain(), nil
}

func (r *PaymentsRepo) MarkUpgradeApplied(ctx context.Context, id string) error {
	return r.updateByID(ctx, "payments.mark_upgrade_applied", id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "upgradeStatus", Value: payment.UpgradeApplied},
			{Key: "nextUpgradeAt", Value: nil},
			{Key: "lastUpgradeError", Value: nil},
			{Key: "lockedAt", Value: nil},
			{Key: "lockedBy", Value: nil},
		}},
	})
}

func (r *PaymentsRepo) RescheduleUpgrade(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.updateByID(ctx, "payments.reschedule_upgrade", id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "upgradeAttempts", Value: 1}}},
		{Key: "$set", Value: bson.D{
			{Key: "nextUpgradeAt", Value: runAt.UTC()},
			{Key: "lastUpgradeError", Value: errMsg},
			{Key: "lockedAt", Value: nil},
			{Key: "lockedBy", Value: nil},
		}},
	})
}

func (r *PaymentsRepo) MarkUpgradeFailed(ctx context.Context, id string, errMsg string) error {
	return r.updateByID(ctx, "payments.mark_upgrade_failed", id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "upgradeAttempts", Value: 1}}},
		{Key: "$set", Value: bson.D{
			{Key: "upgradeStatus", Value: payment.UpgradeFailed},
			{Key: "lastUpgradeError", Value: errMsg},
			{Key: "lockedAt", Value: nil},
			{Key: "lockedBy", Value: nil},
		}},
	})
}

func (r *PaymentsRepo) RequeueStaleUpgrades(ctx context.Context, lockTTL time.Duration) (int64, error) {
	var res *mongo.UpdateResult

	err := r.observe("payments.requeue_stale_upgrades", func() error {
		var err error
		res, err = r.coll.UpdateMany(ctx,
			bson.D{
				{Key: "upgradeStatus", Value: payment.UpgradePending},
				{Key: "lockedAt", Value: bson.D{{Key: "$lt", Value: time.Now().UTC().Add(-lockTTL)}}},
			},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "lockedAt", Value: nil},
				{Key: "lockedBy", Value: nil},
			}}},
		)
		return err
	})

	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *PaymentsRepo) updateByID(ctx context.Context, op, id string, update bson.D) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return payment.ErrNotFound
	}

	var res *mongo.UpdateResult
	err = r.observe(op, func() error {
		var err error
		res, err = r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
		return err
	})

	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return payment.ErrNotFound
	}
	return nil
}
