package db

import (
	"time"

	"github.com/google/uuid"
)

// Session is an admin dashboard login.
type Session struct {
	ID          string    `gorm:"primaryKey;size:64"`
	AdminUserID uuid.UUID `gorm:"type:uuid;index;not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}
