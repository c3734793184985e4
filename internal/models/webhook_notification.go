package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationStatusReceived     = "received"
	NotificationStatusHandled      = "handled"
	NotificationStatusHandleFailed = "handle_failed"
)

// WebhookNotification logs a verified provider notification and how it was handled.
type WebhookNotification struct {
	BaseModel
	Provider    string         `gorm:"size:32" json:"provider"`
	EventID     string         `gorm:"index" json:"event_id"`
	EventType   string         `json:"event_type"`
	ChargeID    string         `gorm:"index" json:"charge_id"`
	OrderRef    string         `json:"order_ref"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Signature   string         `json:"signature"`
	Outcome     string         `json:"outcome"`
	Status      string         `gorm:"index" json:"status"`
	Error       string         `json:"error"`
	ProcessedAt *time.Time     `json:"processed_at"`
}
