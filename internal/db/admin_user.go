package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

type AdminUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:254;not null;uniqueIndex"`
	DisplayName  string    `gorm:"size:64;not null;default:''"`
	PasswordHash string    `gorm:"size:255;not null;default:''"`
	FirebaseUID  string    `gorm:"size:128;index"`
	Role         string    `gorm:"size:16;not null;default:'editor'"`
	Active       bool      `gorm:"not null"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (u *AdminUser) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEditor
}
