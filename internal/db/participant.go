package db

import (
	"time"

	"gorm.io/datatypes"
)

type Participant struct {
	ID          uint           `gorm:"primaryKey"`
	GameID      uint           `gorm:"index;not null;uniqueIndex:idx_participants_game_name"`
	Name        string         `gorm:"size:64;not null;uniqueIndex:idx_participants_game_name"`
	AuthToken   string         `gorm:"size:64;not null"`
	Score       int            `gorm:"not null;default:0"`
	Completed   bool           `gorm:"not null;default:false"`
	SessionData datatypes.JSON `gorm:"not null"`
	JoinedAt    time.Time      `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}
