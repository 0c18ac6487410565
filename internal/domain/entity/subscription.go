// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus enumerates billing states of a subscription.
type SubscriptionStatus string

const (
	// SubscriptionActive indicates a paid, current subscription.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionTrialing indicates an in-trial subscription.
	SubscriptionTrialing SubscriptionStatus = "trialing"
	// SubscriptionCanceled indicates a canceled subscription.
	SubscriptionCanceled SubscriptionStatus = "canceled"
	// SubscriptionPastDue indicates a subscription with a failed renewal payment.
	SubscriptionPastDue SubscriptionStatus = "past_due"
)

// Subscription is the entitlement record composed onto an enriched session at
// fetch time. Absence of a Subscription (nil) means "no subscription"; the
// two cases are never merged into one loosely-typed object.
type Subscription struct {
	ID               uuid.UUID          // The unique ID for this subscription record.
	UserID           uuid.UUID          // The owning user.
	Plan             string             // Plan identifier, e.g. "starter", "pro".
	Status           SubscriptionStatus // Current billing status.
	Entitlements     []string           // Feature flags granted by the plan.
	CurrentPeriodEnd time.Time          // End of the paid period.
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Usable reports whether the subscription currently grants access.
func (s *Subscription) Usable(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing:
		return s.CurrentPeriodEnd.After(now)
	default:
		return false
	}
}
