package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is an audit log entry for admin mutations and guest votes.
type Event struct {
	ID          uint           `gorm:"primaryKey"`
	Type        string         `gorm:"size:64;not null;index"`
	Actor       string         `gorm:"size:120;not null;default:''"`
	SubjectType string         `gorm:"size:32;not null;default:''"`
	SubjectID   string         `gorm:"size:64;not null;default:''"`
	Payload     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}
