package models

import (
	"errors"
	"strings"
	"time"
)

// ErrIncompleteGatewayConfig is returned when a gateway lacks its API or secret key.
var ErrIncompleteGatewayConfig = errors.New("payment gateway configuration incomplete")

// PaymentGateway stores the credentials of a configured gateway.
type PaymentGateway struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Label     string    `json:"label"`
	Plugin    string    `json:"plugin"`
	APIKey    string    `json:"-"`
	SecretKey string    `json:"-"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GatewayConfig is the validated credential pair of a gateway.
type GatewayConfig struct {
	APIKey    string
	SecretKey string
}

// Config validates and returns the gateway credentials.
func (g *PaymentGateway) Config() (GatewayConfig, error) {
	cfg := GatewayConfig{
		APIKey:    strings.TrimSpace(g.APIKey),
		SecretKey: strings.TrimSpace(g.SecretKey),
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return GatewayConfig{}, ErrIncompleteGatewayConfig
	}
	return cfg, nil
}
