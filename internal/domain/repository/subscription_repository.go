// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"errors"

	"saaskit/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrSubscriptionNotFound is returned when a user has no subscription row.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionRepository is the read boundary the session fetch path uses to
// compose entitlement data onto a validated session. Billing writes happen
// elsewhere; this interface is deliberately read-only.
type SubscriptionRepository interface {
	// FindActiveByUserID retrieves the user's currently usable subscription.
	// Returns ErrSubscriptionNotFound when the user has none.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error)
}
