package payment

import (
	"errors"
	"strings"
	"time"
)

const (
	UpgradePending = "pending"
	UpgradeApplied = "applied"
	UpgradeFailed  = "failed"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrNoPendingUpgrade = errors.New("no pending membership upgrade")
	ErrPayerNotFound    = errors.New("payer has no user record")
)

type Payment struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId,omitempty"`
	Date          time.Time `json:"date"`

	// membership upgrade bookkeeping
	UpgradeStatus    string     `json:"upgradeStatus"`
	UpgradeAttempts  int        `json:"upgradeAttempts"`
	NextUpgradeAt    *time.Time `json:"nextUpgradeAt,omitempty"`
	LastUpgradeError *string    `json:"lastUpgradeError,omitempty"`
	LockedBy         *string    `json:"-"`
	LockedAt         *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (p Payment) MembershipApplied() bool {
	return p.UpgradeStatus == UpgradeApplied
}

// DeferUpgrade leaves the upgrade pending for the reconciler, due immediately.
func (p *Payment) DeferUpgrade(cause error) {
	msg := cause.Error()
	p.UpgradeStatus = UpgradePending
	p.LastUpgradeError = &msg
	p.NextUpgradeAt = nil
	p.LockedBy, p.LockedAt = nil, nil
}

type CreatePaymentRequest struct {
	Name          string    `json:"name" binding:"omitempty,max=120"`
	Price         float64   `json:"price" binding:"required,gt=0"`
	Currency      string    `json:"currency" binding:"omitempty,len=3"`
	TransactionID string    `json:"transactionId" binding:"required,max=255"`
	Date          time.Time `json:"date"`
}

type CreateIntentRequest struct {
	Price float64 `json:"price" binding:"required,gt=0,lte=999999"`
}

// NewFromCreateRequest builds the record for the authenticated payer. Any email in the body is ignored.
func NewFromCreateRequest(req CreatePaymentRequest, payerEmail string) Payment {
	now := time.Now().UTC()

	date := req.Date
	if date.IsZero() {
		date = now
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	return Payment{
		Email:         payerEmail,
		Name:          req.Name,
		Price:         req.Price,
		Currency:      currency,
		TransactionID: req.TransactionID,
		Date:          date.UTC(),
		UpgradeStatus: UpgradePending,
		CreatedAt:     now,
	}
}
