package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/handlers"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/middleware"
	"github.com/example/coinbridge/internal/repository"
	"github.com/example/coinbridge/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	store := repository.NewStore(db)

	// Initialize Telegram service
	var notifier services.OrderPlacedNotifier
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	if telegramService.Enabled() {
		notifier = telegramService
	} else {
		logger.Info("telegram notifications disabled", nil)
	}

	ipnService := services.NewIPNService(store, cfg.CoinbaseVariant, notifier)

	coinbaseHandler := handlers.NewCoinbaseHandler(ipnService, cfg)
	authHandler := handlers.NewAuthHandler(cfg)
	orderHandler := handlers.NewOrderHandler(store, cfg)
	gatewayHandler := handlers.NewGatewayHandler(store, cfg)
	adminHandler := handlers.NewAdminHandler(store)
	healthHandler := handlers.NewHealthHandler(store)

	app.Get("/health", healthHandler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post(handlers.IPNPath, coinbaseHandler.IPN)

	api := app.Group("/api")

	// Admin routes
	api.Post("/admin/login", authHandler.Login)

	admin := api.Group("/admin", middleware.AuthMiddleware(cfg))
	admin.Get("/dashboard", adminHandler.DashboardStats)

	admin.Post("/orders", orderHandler.CreateOrder)
	admin.Get("/orders/:id", orderHandler.GetOrder)
	admin.Get("/orders/:id/charge-request", orderHandler.ChargeRequest)

	admin.Get("/payment-gateways/:id", gatewayHandler.GetGateway)
	admin.Put("/payment-gateways/:id", gatewayHandler.UpdateGateway)

	admin.Get("/payments", adminHandler.ListPayments)
	admin.Get("/notifications", adminHandler.ListNotifications)
}
