package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the configured admin account.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	if h.cfg.AdminPasswordHash == "" {
		logger.Warn("admin login attempted but ADMIN_PASSWORD_HASH is not set", nil)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUsername)) == 1
	passwordOK := utils.CheckPassword(h.cfg.AdminPasswordHash, req.Password)
	if !usernameOK || !passwordOK {
		logger.Warn("admin login failed", map[string]any{"username": req.Username, "ip": c.IP()})
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, req.Username, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"token":      token,
		"expires_in": int64(h.cfg.TokenExpires.Seconds()),
	})
}
