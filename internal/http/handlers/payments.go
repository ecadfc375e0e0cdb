package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/notifications"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/payments"
)

type PaymentsStore interface {
	Record(ctx context.Context, p payment.Payment, membership string) (payment.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]payment.Payment, error)
}

type PaymentsHandler struct {
	payments  PaymentsStore
	processor payments.Processor
	notifier  notifications.Notifier
	prom      *observability.Prom
}

// NewPaymentsHandler wires the handler. notifier and prom may be nil.
func NewPaymentsHandler(store PaymentsStore, processor payments.Processor, notifier notifications.Notifier, prom *observability.Prom) *PaymentsHandler {
	return &PaymentsHandler{
		payments:  store,
		processor: processor,
		notifier:  notifier,
		prom:      prom,
	}
}

// CreateIntent asks the processor for a card payment intent for the declared price and
// returns its client secret.
func (h *PaymentsHandler) CreateIntent(ctx *gin.Context) {
	var req payment.CreateIntentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	intentReq := payments.CardIntent(req.Price)
	if err := intentReq.Check(); err != nil {
		RespondBadRequest(ctx, "Price is below the minimum charge", gin.H{"field": "price", "rule": "min", "param": "0.50"})
		return
	}

	intent, err := h.processor.CreateIntent(ctx.Request.Context(), intentReq)
	if errors.Is(err, payments.ErrRejected) {
		h.prom.IncPaymentIntent("rejected")
		slog.Default().WarnContext(ctx.Request.Context(), "payment intent rejected", "err", err)

		RespondError(ctx, http.StatusPaymentRequired, "payment_rejected", "Payment processor rejected the request", nil)
		return
	}
	if err != nil {
		h.prom.IncPaymentIntent("error")
		slog.Default().ErrorContext(ctx.Request.Context(), "payment intent failed", "err", err)

		RespondBadGateway(ctx, "payment_processor_error", "Payment processor unavailable")
		return
	}

	h.prom.IncPaymentIntent("ok")
	ctx.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
}

// Record stores a completed payment for the caller and upgrades their membership.
func (h *PaymentsHandler) Record(ctx *gin.Context) {
	var req payment.CreatePaymentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := callerEmail(ctx)
	if email == "" {
		RespondUnauthorized(ctx)
		return
	}

	saved, err := h.payments.Record(ctx.Request.Context(), payment.NewFromCreateRequest(req, email), user.MembershipSubscribed)
	if err != nil {
		respondStoreFailure(ctx, "Could not record payment", err)
		return
	}

	applied := saved.MembershipApplied()
	if applied {
		h.prom.IncMembershipUpgrade("inline", "applied")
		h.confirm(ctx.Request.Context(), saved)
	} else {
		h.prom.IncMembershipUpgrade("inline", "retry")

		cause := ""
		if saved.LastUpgradeError != nil {
			cause = *saved.LastUpgradeError
		}
		slog.Default().WarnContext(ctx.Request.Context(), "membership upgrade deferred to reconciler",
			"payment_id", saved.ID, "email", saved.Email, "cause", cause)
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"acknowledged":      true,
		"insertedId":        saved.ID,
		"membershipApplied": applied,
	})
}

func (h *PaymentsHandler) List(ctx *gin.Context) {
	email := callerEmail(ctx)
	if email == "" {
		RespondUnauthorized(ctx)
		return
	}

	items, err := h.payments.ListByEmail(ctx.Request.Context(), email)
	if err != nil {
		respondStoreFailure(ctx, "Could not list payments", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// confirm sends the membership confirmation. A failed send never fails the request.
func (h *PaymentsHandler) confirm(ctx context.Context, p payment.Payment) {
	if h.notifier == nil {
		return
	}

	err := h.notifier.SendMembershipConfirmation(context.WithoutCancel(ctx), notifications.MembershipConfirmationInput{
		Email:         p.Email,
		Name:          p.Name,
		Membership:    user.MembershipSubscribed,
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Default().WarnContext(ctx, "membership confirmation not sent", "payment_id", p.ID, "err", err)
	}
}
