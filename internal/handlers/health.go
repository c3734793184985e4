package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coinbridge/internal/repository"
)

type HealthHandler struct {
	store *repository.Store
}

func NewHealthHandler(store *repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health reports liveness and database reachability.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
