package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/database"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/metrics"
	"github.com/example/coinbridge/internal/routes"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel)))

	db := database.Connect(cfg.DatabaseURL, cfg.DatabaseLogLevel)
	metrics.Register(prometheus.DefaultRegisterer)

	app := fiber.New(fiber.Config{
		AppName:   "Coinbridge",
		BodyLimit: cfg.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(metrics.Middleware())

	routes.Register(app, db, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down", nil)
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	logger.Info("starting server", map[string]any{
		"port":          cfg.AppPort,
		"variant":       string(cfg.CoinbaseVariant),
		"response_mode": cfg.CoinbaseResponseMode,
	})
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logger.Fatal("fiber.Listen error", map[string]any{"error": err.Error()})
	}
}
