package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
)

// MemStore is an in-memory repository.Repository that counts writes.
type MemStore struct {
	mu sync.Mutex

	orders        map[uuid.UUID]models.Order
	payments      []models.Payment
	gateways      map[string]models.PaymentGateway
	notifications []models.WebhookNotification

	OrderSaves         int
	PaymentCreates     int
	PaymentSaves       int
	NotificationWrites int

	// FailPaymentWrites makes CreatePayment and SavePayment return this error.
	FailPaymentWrites error
}

var _ repository.Repository = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		orders:   make(map[uuid.UUID]models.Order),
		gateways: make(map[string]models.PaymentGateway),
	}
}

// PutOrder seeds an order, assigning an id when missing.
func (m *MemStore) PutOrder(o models.Order) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	m.orders[o.ID] = o
	return o
}

func (m *MemStore) PutGateway(gw models.PaymentGateway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateways[gw.ID] = gw
}

// Order returns the stored copy of an order.
func (m *MemStore) Order(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

// Payments returns a copy of every stored payment.
func (m *MemStore) Payments() []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Payment(nil), m.payments...)
}

// Notifications returns a copy of every stored notification.
func (m *MemStore) Notifications() []models.WebhookNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WebhookNotification(nil), m.notifications...)
}

// Writes is the total number of order and payment writes.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OrderSaves + m.PaymentCreates + m.PaymentSaves
}

// WithinTx restores orders and payments when fn fails.
func (m *MemStore) WithinTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	m.mu.Lock()
	orders := make(map[uuid.UUID]models.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	payments := append([]models.Payment(nil), m.payments...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.orders = orders
		m.payments = payments
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) FindOrder(ctx context.Context, ref string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		if o, ok := m.orders[id]; ok {
			return &o, nil
		}
	}
	for _, o := range m.orders {
		if ref != "" && o.OrderNumber == ref {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (m *MemStore) SaveOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderSaves++
	m.orders[order.ID] = *order
	return nil
}

func (m *MemStore) FindPaymentByRemoteID(ctx context.Context, remoteID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if remoteID != "" && p.RemoteID == remoteID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) FindPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPaymentWrites != nil {
		return m.FailPaymentWrites
	}
	m.PaymentCreates++
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *MemStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPaymentWrites != nil {
		return m.FailPaymentWrites
	}
	m.PaymentSaves++
	for i := range m.payments {
		if m.payments[i].ID == payment.ID {
			payment.UpdatedAt = time.Now()
			m.payments[i] = *payment
			return nil
		}
	}
	return errors.New("memstore: save of unknown payment")
}

func (m *MemStore) FindGateway(ctx context.Context, id string) (*models.PaymentGateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gw, ok := m.gateways[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &gw, nil
}

func (m *MemStore) CreateNotification(ctx context.Context, n *models.WebhookNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationWrites++
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemStore) SaveNotification(ctx context.Context, n *models.WebhookNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationWrites++
	for i := range m.notifications {
		if m.notifications[i].ID == n.ID {
			m.notifications[i] = *n
			return nil
		}
	}
	m.notifications = append(m.notifications, *n)
	return nil
}
