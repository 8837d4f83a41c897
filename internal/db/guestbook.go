package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GuestbookMessage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	GuestName   string    `gorm:"size:64;not null"`
	Message     string    `gorm:"size:280;not null;default:''"`
	VideoKey    string    `gorm:"size:255;not null"`
	ContentType string    `gorm:"size:64;not null"`
	SizeBytes   int64     `gorm:"not null"`
	Approved    bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (m *GuestbookMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
