package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/coinbridge/internal/repository"
	"github.com/example/coinbridge/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	store *repository.Store
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(store *repository.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// DashboardStats returns order, payment and notification counts by state.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// ListPayments returns payment transactions, optionally filtered.
func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	filter := repository.PaymentFilter{
		State:    strings.TrimSpace(c.Query("state")),
		RemoteID: strings.TrimSpace(c.Query("remote_id")),
	}
	if orderID := strings.TrimSpace(c.Query("order_id")); orderID != "" {
		parsed, err := uuid.Parse(orderID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
		}
		filter.OrderID = &parsed
	}

	payments, total, err := h.store.ListPayments(c.UserContext(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ListNotifications returns the webhook notification log.
func (h *AdminHandler) ListNotifications(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	notifications, total, err := h.store.ListNotifications(c.UserContext(), strings.TrimSpace(c.Query("status")), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifications,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
