package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionModel mirrors the 'subscriptions' table. Entitlements are
// stored as a JSONB array via the GORM JSON serializer.
type SubscriptionModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Plan             string    `gorm:"type:varchar(50);not null"`
	Status           string    `gorm:"type:varchar(20);not null"`
	Entitlements     []string  `gorm:"type:jsonb;serializer:json"`
	CurrentPeriodEnd time.Time `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName explicitly sets the table name for GORM.
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
