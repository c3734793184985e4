package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/coinbridge/internal/models"
)

// Store is the gorm-backed Repository.
type Store struct {
	db *gorm.DB
}

var _ Repository = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// FindOrder resolves an order reference: a UUID matches the primary key,
// anything else is matched against the order number.
func (s *Store) FindOrder(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}

	var order models.Order
	db := s.db.WithContext(ctx)

	if parsed, err := uuid.Parse(ref); err == nil {
		if err := db.Where("id = ?", parsed).First(&order).Error; err == nil {
			return &order, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := db.Where("order_number = ?", ref).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// GetOrder loads an order with its items.
func (s *Store) GetOrder(ctx context.Context, ref string) (*models.Order, error) {
	order, err := s.FindOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at asc").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// LockOrder reloads an order holding a row lock until the transaction ends.
func (s *Store) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (s *Store) FindPaymentByRemoteID(ctx context.Context, remoteID string) (*models.Payment, error) {
	if remoteID == "" {
		return nil, ErrNotFound
	}
	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Where("remote_id = ?", remoteID).
		Order("created_at asc").
		First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (s *Store) FindPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *Store) SavePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

// PaymentFilter narrows ListPayments.
type PaymentFilter struct {
	State    string
	OrderID  *uuid.UUID
	RemoteID string
}

// ListPayments returns a page of payments, newest first, and the total match count.
func (s *Store) ListPayments(ctx context.Context, filter PaymentFilter, limit, offset int) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{})
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.RemoteID != "" {
		query = query.Where("remote_id = ?", filter.RemoteID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	if err := query.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (s *Store) FindGateway(ctx context.Context, id string) (*models.PaymentGateway, error) {
	var gw models.PaymentGateway
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&gw).Error; err != nil {
		return nil, notFound(err)
	}
	return &gw, nil
}

// SaveGateway inserts or updates a gateway by id.
func (s *Store) SaveGateway(ctx context.Context, gw *models.PaymentGateway) error {
	return s.db.WithContext(ctx).Save(gw).Error
}

func (s *Store) CreateNotification(ctx context.Context, n *models.WebhookNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *Store) SaveNotification(ctx context.Context, n *models.WebhookNotification) error {
	return s.db.WithContext(ctx).Save(n).Error
}

// ListNotifications returns a page of notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, status string, limit, offset int) ([]models.WebhookNotification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.WebhookNotification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.WebhookNotification
	if err := query.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats is a snapshot of row counts grouped by lifecycle state.
type Stats struct {
	OrdersByState        map[string]int64 `json:"orders_by_state"`
	PaymentsByState      map[string]int64 `json:"payments_by_state"`
	NotificationsByState map[string]int64 `json:"notifications_by_status"`
}

// Stats counts orders, payments and notifications by state.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	orders, err := s.countBy(ctx, &models.Order{}, "state")
	if err != nil {
		return nil, err
	}
	payments, err := s.countBy(ctx, &models.Payment{}, "state")
	if err != nil {
		return nil, err
	}
	notifications, err := s.countBy(ctx, &models.WebhookNotification{}, "status")
	if err != nil {
		return nil, err
	}
	return &Stats{
		OrdersByState:        orders,
		PaymentsByState:      payments,
		NotificationsByState: notifications,
	}, nil
}

func (s *Store) countBy(ctx context.Context, model any, column string) (map[string]int64, error) {
	type groupCount struct {
		GroupKey string
		Count    int64
	}
	var rows []groupCount
	if err := s.db.WithContext(ctx).
		Model(model).
		Select(column + " as group_key, count(*) as count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Count
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
