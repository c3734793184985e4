package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/utils"
)

const adminContextKey = "currentAdmin"

// AuthMiddleware validates admin JWT tokens and loads the username into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		username, err := utils.ParseToken(cfg.JWTSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(adminContextKey, username)
		return c.Next()
	}
}

// GetCurrentAdmin extracts the authenticated admin username from context.
func GetCurrentAdmin(c *fiber.Ctx) (string, bool) {
	username, ok := c.Locals(adminContextKey).(string)
	return username, ok && username != ""
}
