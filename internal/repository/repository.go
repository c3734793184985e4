package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/coinbridge/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Repository is the storage the IPN pipeline reads and writes.
type Repository interface {
	// WithinTx runs fn against a repository bound to one database transaction.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	FindOrder(ctx context.Context, ref string) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error

	FindPaymentByRemoteID(ctx context.Context, remoteID string) (*models.Payment, error)
	FindPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SavePayment(ctx context.Context, payment *models.Payment) error

	FindGateway(ctx context.Context, id string) (*models.PaymentGateway, error)

	CreateNotification(ctx context.Context, n *models.WebhookNotification) error
	SaveNotification(ctx context.Context, n *models.WebhookNotification) error
}
