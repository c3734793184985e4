package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/services"
)

// CoinbaseHandler receives Coinbase Commerce webhook notifications.
type CoinbaseHandler struct {
	ipn             *services.IPNService
	signatureHeader string
	responseMode    string
}

func NewCoinbaseHandler(ipn *services.IPNService, cfg *config.Config) *CoinbaseHandler {
	return &CoinbaseHandler{
		ipn:             ipn,
		signatureHeader: cfg.CoinbaseSignatureHeader,
		responseMode:    cfg.CoinbaseResponseMode,
	}
}

// IPN verifies and applies one notification. Rejected notifications answer
// 400 so the provider stops retrying them; storage failures answer 500 so it retries.
func (h *CoinbaseHandler) IPN(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns.
	body := append([]byte(nil), c.Body()...)

	_, err := h.ipn.Process(c.UserContext(), body, c.Get(h.signatureHeader))
	if err != nil {
		var rejection *services.RejectionError
		if errors.As(err, &rejection) {
			return h.fail(c, fiber.StatusBadRequest, "invalid notification")
		}
		return h.fail(c, fiber.StatusInternalServerError, "notification processing failed")
	}

	if h.responseMode == config.ResponseModeEmpty {
		return c.SendStatus(fiber.StatusOK)
	}
	return c.JSON(fiber.Map{"status": true})
}

func (h *CoinbaseHandler) fail(c *fiber.Ctx, code int, message string) error {
	if h.responseMode == config.ResponseModeEmpty {
		return fiber.NewError(code, message)
	}
	return c.Status(code).JSON(fiber.Map{"status": false})
}
