package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/coinbridge/internal/workflow"
)

// Order is a customer order paid through a payment gateway.
type Order struct {
	BaseModel
	OrderNumber      string          `gorm:"uniqueIndex" json:"order_number"`
	StoreName        string          `json:"store_name"`
	CustomerID       string          `gorm:"index" json:"customer_id"`
	Email            string          `json:"email"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(20,8)" json:"total_amount"`
	Currency         string          `gorm:"size:3" json:"currency"`
	PaymentGatewayID string          `gorm:"index" json:"payment_gateway_id"`
	Workflow         string          `json:"workflow"`
	State            string          `json:"state"`
	ChargeID         string          `json:"charge_id"`
	PlacedAt         *time.Time      `json:"placed_at"`
	Items            []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(20,8)" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(20,8)" json:"line_total"`
}

// AllowedTransitions returns the workflow transitions legal from the current state.
func (o *Order) AllowedTransitions() (map[string]workflow.Transition, error) {
	w, err := workflow.Lookup(o.Workflow)
	if err != nil {
		return nil, err
	}
	return w.Allowed(o.State), nil
}

// ApplyTransition moves the order to the transition's target state.
func (o *Order) ApplyTransition(t workflow.Transition, now time.Time) {
	o.State = t.To
	if t.ID == "place" && o.PlacedAt == nil {
		o.PlacedAt = &now
	}
}
