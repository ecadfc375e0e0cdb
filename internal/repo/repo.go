// Package repo declares the storage contract shared by the mongo, postgres and memory backends.
package repo

import (
	"context"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
)

type UsersRepository interface {
	List(ctx context.Context) ([]user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	// CreateIfAbsent inserts u unless a user with the same email exists.
	// inserted is false (and err nil) when the email was already registered.
	CreateIfAbsent(ctx context.Context, u user.User) (created user.User, inserted bool, err error)
	SetRole(ctx context.Context, id, role string) (UpdateResult, error)
	SetMembership(ctx context.Context, email, membership string) (UpdateResult, error)
	// EnsureAdmin creates or promotes the user with the given email to admin.
	EnsureAdmin(ctx context.Context, email, name string) error
}

type ProductsRepository interface {
	Create(ctx context.Context, p product.Product) (product.Product, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	ListByOwner(ctx context.Context, email string) ([]product.Product, error)
	// List returns all products matching filter; without a category they come pending-first.
	List(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (UpdateResult, error)
	Patch(ctx context.Context, id string, patch product.Patch) (UpdateResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
	ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error)
	CountAccepted(ctx context.Context) (int64, error)
	ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error)
}

type PaymentsRepository interface {
	// Record stores p and sets the payer's membership. Both writes land together, or the
	// payment is left with UpgradeStatus pending for the reconciler.
	Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]payment.Payment, error)
	ClaimPendingUpgrade(ctx context.Context, workerID string) (payment.Payment, error)
	MarkUpgradeApplied(ctx context.Context, id string) error
	RescheduleUpgrade(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkUpgradeFailed(ctx context.Context, id string, errMsg string) error
	RequeueStaleUpgrades(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Store bundles the collection handles built once at startup and shared by every handler.
type Store struct {
	Users    UsersRepository
	Products ProductsRepository
	Payments PaymentsRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func NewStore(users UsersRepository, products ProductsRepository, payments PaymentsRepository, ping, closeFn func(ctx context.Context) error) *Store {
	return &Store{
		Users:    users,
		Products: products,
		Payments: payments,
		ping:     ping,
		close:    closeFn,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}
