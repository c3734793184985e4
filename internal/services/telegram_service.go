package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/coinbridge/internal/logger"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBaseURL  string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBaseURL:  defaultTelegramAPI,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIBaseURL points the service at another Bot API host.
func (s *TelegramService) WithAPIBaseURL(baseURL string) *TelegramService {
	s.apiBaseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Enabled reports whether both the bot token and admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s != nil && s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		logger.Warn("telegram bot token not configured", nil)
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBaseURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderPlacedNotification carries the data of an order placed by a crypto payment.
type OrderPlacedNotification struct {
	OrderNumber   string
	CustomerEmail string
	ChargeID      string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	OrderState    string
}

// FormatPrice formats an amount with thousand separators and two decimals.
func FormatPrice(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	if amount.IsNegative() {
		result.WriteString("-")
	}
	length := len(intPart)
	for i, digit := range intPart {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	result.WriteString(".")
	result.WriteString(frac)

	if currency != "" {
		result.WriteString(" ")
		result.WriteString(currency)
	}
	return result.String()
}

// NotifyOrderPlaced tells the admin chat that a charge placed an order.
func (s *TelegramService) NotifyOrderPlaced(ctx context.Context, n OrderPlacedNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>✅ CRYPTO PAYMENT RECEIVED</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>💰 Amount:</b> %s
<b>🔗 Charge:</b> %s
<b>🧾 Transaction:</b> %s
<b>📍 State:</b> %s
━━━━━━━━━━━━━━━━━━`,
		n.OrderNumber,
		n.CustomerEmail,
		FormatPrice(n.Amount, n.Currency),
		n.ChargeID,
		n.TransactionID,
		n.OrderState,
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
