package testutil

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/workflow"
)

const (
	GatewayID = "coinbase"
	APIKey    = "test-api-key"
	SecretKey = "test-shared-secret"
)

// Gateway returns a fully configured Coinbase gateway.
func Gateway() models.PaymentGateway {
	return models.PaymentGateway{
		ID:        GatewayID,
		Label:     "Coinbase Commerce",
		Plugin:    "coinbase_redirect",
		APIKey:    APIKey,
		SecretKey: SecretKey,
		Enabled:   true,
	}
}

// DraftOrder returns an unsaved draft order number 42 totalling 50.00 EUR.
func DraftOrder() models.Order {
	return models.Order{
		OrderNumber:      "42",
		StoreName:        "Shafran",
		CustomerID:       "7",
		Email:            "buyer@example.com",
		TotalAmount:      decimal.RequireFromString("50.00"),
		Currency:         "EUR",
		PaymentGatewayID: GatewayID,
		Workflow:         workflow.DefaultID,
		State:            workflow.StateDraft,
	}
}

// PaymentFixture is one entry of a charge payments list.
type PaymentFixture struct {
	Status        string
	TransactionID string
	Amount        string
	Currency      string
}

// TimelineFixture is one entry of a charge timeline.
type TimelineFixture struct {
	Status  string
	Context string
}

// Notification describes a webhook body to render.
type Notification struct {
	EventID   string
	EventType string
	ChargeID  string
	OrderID   string
	ClientID  string
	Payments  []PaymentFixture
	Timeline  []TimelineFixture
}

// Body renders the notification as the provider would send it.
func (n Notification) Body() []byte {
	metadata := map[string]any{}
	if n.OrderID != "" {
		metadata["order_id"] = n.OrderID
	}
	if n.ClientID != "" {
		metadata["client_id"] = n.ClientID
	}

	payments := make([]map[string]any, 0, len(n.Payments))
	for _, p := range n.Payments {
		payments = append(payments, map[string]any{
			"status":         p.Status,
			"transaction_id": p.TransactionID,
			"value": map[string]any{
				"local": map[string]any{"amount": p.Amount, "currency": p.Currency},
			},
		})
	}

	timeline := make([]map[string]any, 0, len(n.Timeline))
	for _, e := range n.Timeline {
		entry := map[string]any{"status": e.Status}
		if e.Context != "" {
			entry["context"] = e.Context
		}
		timeline = append(timeline, entry)
	}

	body, err := json.Marshal(map[string]any{
		"event": map[string]any{
			"id":   n.EventID,
			"type": n.EventType,
			"data": map[string]any{
				"id":       n.ChargeID,
				"metadata": metadata,
				"payments": payments,
				"timeline": timeline,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return body
}

// Confirmed is a charge:confirmed notification for order 42 with one 50.00 EUR payment.
func Confirmed() Notification {
	return Notification{
		EventID:   "evt-confirmed",
		EventType: "charge:confirmed",
		ChargeID:  "charge-42",
		OrderID:   "42",
		ClientID:  "7",
		Payments: []PaymentFixture{
			{Status: "CONFIRMED", TransactionID: "0xfeed", Amount: "50.00", Currency: "EUR"},
		},
		Timeline: []TimelineFixture{{Status: "NEW"}, {Status: "PENDING"}, {Status: "COMPLETED"}},
	}
}

// Failed is a charge:failed notification for order 42.
func Failed() Notification {
	return Notification{
		EventID:   "evt-failed",
		EventType: "charge:failed",
		ChargeID:  "charge-42",
		OrderID:   "42",
		ClientID:  "7",
		Timeline:  []TimelineFixture{{Status: "NEW"}, {Status: "EXPIRED"}},
	}
}
