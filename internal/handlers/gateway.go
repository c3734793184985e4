package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
)

// IPNPath is where providers deliver webhook notifications.
const IPNPath = "/api/coinbase/ipn"

// GatewayHandler manages payment gateway credentials.
type GatewayHandler struct {
	store *repository.Store
	cfg   *config.Config
}

func NewGatewayHandler(store *repository.Store, cfg *config.Config) *GatewayHandler {
	return &GatewayHandler{store: store, cfg: cfg}
}

type gatewayRequest struct {
	Label     string `json:"label"`
	Plugin    string `json:"plugin"`
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Enabled   *bool  `json:"enabled"`
}

type gatewayResponse struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Plugin     string    `json:"plugin"`
	Enabled    bool      `json:"enabled"`
	APIKey     string    `json:"api_key"`
	SecretKey  string    `json:"secret_key"`
	WebhookURL string    `json:"webhook_url"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetGateway returns a gateway with its secrets masked.
func (h *GatewayHandler) GetGateway(c *fiber.Ctx) error {
	gw, err := h.store.FindGateway(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "payment gateway not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.present(gw)})
}

// UpdateGateway creates or replaces the credentials of a gateway.
func (h *GatewayHandler) UpdateGateway(c *fiber.Ctx) error {
	var req gatewayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	ctx := c.UserContext()

	gw, err := h.store.FindGateway(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		gw = &models.PaymentGateway{ID: id, Plugin: "coinbase_redirect", Enabled: true}
	case err != nil:
		return err
	}

	if label := strings.TrimSpace(req.Label); label != "" {
		gw.Label = label
	}
	if plugin := strings.TrimSpace(req.Plugin); plugin != "" {
		gw.Plugin = plugin
	}
	if req.Enabled != nil {
		gw.Enabled = *req.Enabled
	}
	gw.APIKey = req.APIKey
	gw.SecretKey = req.SecretKey

	if _, err := gw.Config(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "api_key and secret_key are required")
	}
	gw.APIKey = strings.TrimSpace(gw.APIKey)
	gw.SecretKey = strings.TrimSpace(gw.SecretKey)

	if err := h.store.SaveGateway(ctx, gw); err != nil {
		return err
	}

	logger.Info("payment gateway updated", map[string]any{"payment_gateway": gw.ID})
	return c.JSON(fiber.Map{"success": true, "data": h.present(gw)})
}

func (h *GatewayHandler) present(gw *models.PaymentGateway) gatewayResponse {
	return gatewayResponse{
		ID:         gw.ID,
		Label:      gw.Label,
		Plugin:     gw.Plugin,
		Enabled:    gw.Enabled,
		APIKey:     maskSecret(gw.APIKey),
		SecretKey:  maskSecret(gw.SecretKey),
		WebhookURL: h.cfg.PublicBaseURL + IPNPath,
		UpdatedAt:  gw.UpdatedAt,
	}
}

// maskSecret keeps the last four characters of secrets long enough to spare them.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
