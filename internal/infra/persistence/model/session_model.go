package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. ExpiresAt is indexed because the
// sweeper and every liveness filter query on it.
type SessionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Token     string    `gorm:"type:varchar(64);unique;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UserAgent string    `gorm:"type:text"`
	IPAddress string    `gorm:"type:varchar(64)"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
