package services

import (
	"context"
	"fmt"
	"time"

	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
)

// ApplyTransition applies the named workflow transition and saves the order.
// A transition that is not legal from the current state is skipped without
// error and without touching the order; applied reports which happened.
func ApplyTransition(ctx context.Context, repo repository.Repository, order *models.Order, name string, now time.Time) (applied bool, err error) {
	allowed, err := order.AllowedTransitions()
	if err != nil {
		return false, fmt.Errorf("order %s: %w", order.ID, err)
	}

	transition, ok := allowed[name]
	if !ok {
		return false, nil
	}

	order.ApplyTransition(transition, now)
	if err := repo.SaveOrder(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}
