package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/example/coinbridge/internal/coinbase"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/metrics"
	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
)

const providerCoinbase = "coinbase"

// OrderPlacedNotifier is told about orders a notification has placed.
type OrderPlacedNotifier interface {
	NotifyOrderPlaced(ctx context.Context, n OrderPlacedNotification) error
}

// IPNResult summarizes a processed notification.
type IPNResult struct {
	OrderID           uuid.UUID
	OrderNumber       string
	OrderState        string
	PaymentID         uuid.UUID
	PaymentState      string
	Outcome           coinbase.Outcome
	Transition        string
	TransitionApplied bool
	Stale             bool
}

// IPNService verifies Coinbase Commerce notifications and reconciles
// the referenced order and payment.
type IPNService struct {
	repo       repository.Repository
	variant    coinbase.Variant
	reconciler *Reconciler
	notifier   OrderPlacedNotifier
	now        func() time.Time
}

func NewIPNService(repo repository.Repository, variant coinbase.Variant, notifier OrderPlacedNotifier) *IPNService {
	return &IPNService{
		repo:       repo,
		variant:    variant,
		reconciler: NewReconciler(PolicyFor(variant)),
		notifier:   notifier,
		now:        time.Now,
	}
}

// Process runs one notification through parse, order and gateway lookup,
// signature verification, payment reconciliation and order transition.
// Client-attributable failures are returned as *RejectionError before any write.
func (s *IPNService) Process(ctx context.Context, body []byte, signature string) (*IPNResult, error) {
	ev, err := coinbase.ParseEvent(body, s.variant)
	if err != nil {
		logger.Warn("invalid payload provided", map[string]any{"error": err.Error()})
		return nil, s.reject(ReasonMalformedPayload, err)
	}

	fields := map[string]any{
		"order_id":   ev.OrderID,
		"client_id":  ev.ClientID,
		"charge_id":  ev.Charge.ID,
		"event_type": ev.Type,
		"status":     ev.Charge.Status,
	}

	order, err := s.repo.FindOrder(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("order not found", fields)
			return nil, s.reject(ReasonOrderNotFound, ErrOrderNotFound)
		}
		return nil, err
	}

	gateway, err := s.repo.FindGateway(ctx, order.PaymentGatewayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("payment gateway config not found", withField(fields, "payment_gateway", order.PaymentGatewayID))
			return nil, s.reject(ReasonGatewayConfigNotFound, ErrGatewayConfigNotFound)
		}
		return nil, err
	}
	config, err := gateway.Config()
	if err != nil {
		logger.Warn("payment gateway config incomplete", withField(fields, "payment_gateway", gateway.ID))
		return nil, s.reject(ReasonGatewayConfigNotFound, fmt.Errorf("%w: %v", ErrGatewayConfigNotFound, err))
	}

	if err := coinbase.VerifySignature(body, signature, config.SecretKey); err != nil {
		logger.Warn("signature verification failed", withField(fields, "reason", err.Error()))
		return nil, s.reject(ReasonSignatureInvalid, err)
	}

	outcome := coinbase.Interpret(s.variant, ev)
	notification := s.recordReceived(ctx, ev, body, signature, outcome)

	result := &IPNResult{Outcome: outcome, Transition: outcome.Transition()}
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		locked, err := tx.LockOrder(ctx, order.ID)
		if err != nil {
			return err
		}

		rec, err := s.reconciler.Reconcile(ctx, tx, locked, &ev.Charge, gateway.ID, outcome)
		if err != nil {
			return err
		}
		result.PaymentID = rec.Payment.ID
		result.PaymentState = rec.Payment.State
		result.Stale = rec.Stale

		if result.Transition != "" {
			if rec.Stale {
				logger.Warn("stale notification, order left untouched", withField(fields, "payment_state", rec.Payment.State))
			} else {
				applied, err := ApplyTransition(ctx, tx, locked, result.Transition, s.now())
				if err != nil {
					return err
				}
				result.TransitionApplied = applied
				if !applied {
					logger.Info("transition not available from current order state", map[string]any{
						"order_id":    locked.OrderNumber,
						"transition":  result.Transition,
						"order_state": locked.State,
					})
				}
			}
		}

		result.OrderID = locked.ID
		result.OrderNumber = locked.OrderNumber
		result.OrderState = locked.State
		return nil
	})
	s.recordHandled(ctx, notification, err)
	if err != nil {
		logger.Error("notification processing failed", withField(fields, "error", err.Error()))
		return nil, err
	}

	metrics.IPNNotificationsTotal.WithLabelValues(string(outcome)).Inc()

	if outcome == coinbase.OutcomePlace && result.TransitionApplied {
		s.orderPlaced(ev, order, result)
	}

	logger.Info("got notification about order", withField(fields, "outcome", string(outcome)))
	return result, nil
}

func (s *IPNService) orderPlaced(ev *coinbase.Event, order *models.Order, result *IPNResult) {
	transactionID := ""
	amount := order.TotalAmount
	currency := order.Currency
	if confirmed, ok := ev.Charge.ConfirmedPayment(); ok {
		transactionID = confirmed.TransactionID
	}

	logger.Info("order was completed", map[string]any{
		"order_id":       result.OrderNumber,
		"transaction_id": transactionID,
	})

	if s.notifier == nil {
		return
	}
	n := OrderPlacedNotification{
		OrderNumber:   result.OrderNumber,
		CustomerEmail: order.Email,
		ChargeID:      ev.Charge.ID,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		OrderState:    result.OrderState,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifyOrderPlaced(ctx, n); err != nil {
			logger.Warn("order placed notification failed", map[string]any{
				"order_id": n.OrderNumber,
				"error":    err.Error(),
			})
		}
	}()
}

func (s *IPNService) reject(reason RejectReason, err error) error {
	metrics.IPNRejectionsTotal.WithLabelValues(string(reason)).Inc()
	return reject(reason, err)
}

// recordReceived stores the verified notification. Failures only warn.
func (s *IPNService) recordReceived(ctx context.Context, ev *coinbase.Event, body []byte, signature string, outcome coinbase.Outcome) *models.WebhookNotification {
	n := &models.WebhookNotification{
		Provider:  providerCoinbase,
		EventID:   ev.ID,
		EventType: ev.Type,
		ChargeID:  ev.Charge.ID,
		OrderRef:  ev.OrderID,
		Payload:   datatypes.JSON(body),
		Signature: signature,
		Outcome:   string(outcome),
		Status:    models.NotificationStatusReceived,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		logger.Warn("failed to record notification", map[string]any{
			"charge_id": ev.Charge.ID,
			"error":     err.Error(),
		})
		return nil
	}
	return n
}

func (s *IPNService) recordHandled(ctx context.Context, n *models.WebhookNotification, processErr error) {
	if n == nil {
		return
	}
	now := s.now()
	n.ProcessedAt = &now
	n.Status = models.NotificationStatusHandled
	if processErr != nil {
		n.Status = models.NotificationStatusHandleFailed
		n.Error = processErr.Error()
	}
	if err := s.repo.SaveNotification(ctx, n); err != nil {
		logger.Warn("failed to update notification", map[string]any{
			"notification_id": n.ID.String(),
			"error":           err.Error(),
		})
	}
}

func withField(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
