package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/coinbridge/internal/coinbase"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
)

// Policy holds the reconciliation choices that differ between integration variants.
type Policy struct {
	Variant coinbase.Variant
	// LookupByRemoteID keys payments by charge id; otherwise by order id.
	LookupByRemoteID bool
	// SeedAmountFromOrder gives a new payment the order total until a confirmed payment reports one.
	SeedAmountFromOrder bool
}

// PolicyFor returns the policy of an integration variant.
func PolicyFor(variant coinbase.Variant) Policy {
	if variant == coinbase.VariantTimeline {
		return Policy{Variant: variant}
	}
	return Policy{
		Variant:             coinbase.VariantEvent,
		LookupByRemoteID:    true,
		SeedAmountFromOrder: true,
	}
}

// ReconcileResult describes the payment after reconciliation.
type ReconcileResult struct {
	Payment *models.Payment
	Created bool
	// Stale is set when the outcome would have moved the payment backwards.
	Stale bool
}

// Reconciler finds or creates the local payment for a charge and updates it.
type Reconciler struct {
	policy Policy
	now    func() time.Time
}

func NewReconciler(policy Policy) *Reconciler {
	return &Reconciler{policy: policy, now: time.Now}
}

// Reconcile upserts the payment of charge against order. The payment is
// always persisted so its remote state tracks the latest notification.
func (r *Reconciler) Reconcile(ctx context.Context, repo repository.Repository, order *models.Order, charge *coinbase.Charge, gatewayID string, outcome coinbase.Outcome) (*ReconcileResult, error) {
	payment, err := r.find(ctx, repo, order, charge)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		payment = &models.Payment{
			OrderID:          order.ID,
			PaymentGatewayID: gatewayID,
			RemoteID:         charge.ID,
			State:            coinbase.PaymentStateNew,
		}
		if r.policy.SeedAmountFromOrder {
			payment.Amount = decimal.NewNullDecimal(order.TotalAmount)
			payment.Currency = order.Currency
		}
		created = true
	case err != nil:
		return nil, err
	}

	if payment.RemoteID == "" {
		payment.RemoteID = charge.ID
	}
	payment.RemoteState = charge.Status
	applyConfirmedAmount(payment, charge)

	stale := false
	if target := outcome.PaymentState(); target != "" {
		if coinbase.CanAdvance(payment.State, target) {
			if target == coinbase.PaymentStateCompleted && payment.CompletedAt == nil {
				now := r.now()
				payment.CompletedAt = &now
			}
			payment.State = target
		} else {
			stale = true
		}
	}

	if created {
		err = repo.CreatePayment(ctx, payment)
	} else {
		err = repo.SavePayment(ctx, payment)
	}
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{Payment: payment, Created: created, Stale: stale}, nil
}

func (r *Reconciler) find(ctx context.Context, repo repository.Repository, order *models.Order, charge *coinbase.Charge) (*models.Payment, error) {
	if r.policy.LookupByRemoteID && charge.ID != "" {
		return repo.FindPaymentByRemoteID(ctx, charge.ID)
	}
	return repo.FindPaymentByOrderID(ctx, order.ID)
}

// applyConfirmedAmount copies the first confirmed payment's local amount.
// Without one the amount is left as it is.
func applyConfirmedAmount(payment *models.Payment, charge *coinbase.Charge) {
	confirmed, ok := charge.ConfirmedPayment()
	if !ok {
		return
	}
	if confirmed.TransactionID != "" {
		payment.TransactionID = confirmed.TransactionID
	}

	local := confirmed.Value.Local
	if local == nil || local.Amount == "" || local.Currency == "" {
		return
	}
	amount, err := decimal.NewFromString(string(local.Amount))
	if err != nil {
		logger.Warn("unparseable confirmed payment amount", map[string]any{
			"charge_id": charge.ID,
			"amount":    string(local.Amount),
		})
		return
	}
	payment.Amount = decimal.NewNullDecimal(amount)
	payment.Currency = local.Currency
}
