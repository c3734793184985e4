package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coinbridge/internal/services"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"50", "EUR", "50.00 EUR"},
		{"1234567.5", "USD", "1,234,567.50 USD"},
		{"999.999", "", "1,000.00"},
		{"-1200", "EUR", "-1,200.00 EUR"},
	}
	for _, tt := range tests {
		got := services.FormatPrice(decimal.RequireFromString(tt.amount), tt.currency)
		assert.Equal(t, tt.want, got)
	}
}

func TestTelegramService_NotifyOrderPlaced(t *testing.T) {
	var (
		path    string
		payload map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := services.NewTelegramService("bot-token", "-100200").WithAPIBaseURL(server.URL)
	require.True(t, svc.Enabled())

	err := svc.NotifyOrderPlaced(context.Background(), services.OrderPlacedNotification{
		OrderNumber:   "42",
		CustomerEmail: "buyer@example.com",
		ChargeID:      "charge-42",
		TransactionID: "0xfeed",
		Amount:        decimal.RequireFromString("50"),
		Currency:      "EUR",
		OrderState:    "completed",
	})
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", path)
	assert.Equal(t, "-100200", payload["chat_id"])
	assert.Equal(t, "HTML", payload["parse_mode"])
	assert.Contains(t, payload["text"], "42")
	assert.Contains(t, payload["text"], "50.00 EUR")
	assert.Contains(t, payload["text"], "0xfeed")
}

func TestTelegramService_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc := services.NewTelegramService("bot-token", "-100200").WithAPIBaseURL(server.URL)
	err := svc.SendToAdmin(context.Background(), "hello")
	assert.ErrorContains(t, err, "status 400")
}

func TestTelegramService_Disabled(t *testing.T) {
	svc := services.NewTelegramService("", "")
	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.NotifyOrderPlaced(context.Background(), services.OrderPlacedNotification{OrderNumber: "1"}))
	assert.NoError(t, svc.SendMessage(context.Background(), "1", "hi"))
}
