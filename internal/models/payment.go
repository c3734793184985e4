package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the local record of a payment attempt against an order.
// RemoteID is the provider charge id.
type Payment struct {
	BaseModel
	OrderID          uuid.UUID           `gorm:"type:uuid;index" json:"order_id"`
	PaymentGatewayID string              `gorm:"index" json:"payment_gateway_id"`
	RemoteID         string              `gorm:"index" json:"remote_id"`
	RemoteState      string              `json:"remote_state"`
	State            string              `gorm:"index" json:"state"`
	Amount           decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"amount"`
	Currency         string              `gorm:"size:3" json:"currency"`
	TransactionID    string              `json:"transaction_id"`
	CompletedAt      *time.Time          `json:"completed_at"`
}
