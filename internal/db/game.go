package db

import "time"

const (
	GameStatusWaiting   = "waiting"
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
)

// Game is a trivia room that guests are matched into.
type Game struct {
	ID              uint      `gorm:"primaryKey"`
	JoinCode        string    `gorm:"size:12;uniqueIndex;not null"`
	Title           string    `gorm:"size:120;not null;default:''"`
	Status          string    `gorm:"size:32;not null;index"`
	MaxParticipants int       `gorm:"not null;default:8"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Participants    []Participant
}
