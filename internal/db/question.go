package db

import (
	"time"

	"hill-valley/internal/trivia"

	"gorm.io/datatypes"
)

type Question struct {
	ID           uint                        `gorm:"primaryKey"`
	Level        int                         `gorm:"not null;index;uniqueIndex:idx_questions_level_text"`
	Text         string                      `gorm:"size:280;not null;uniqueIndex:idx_questions_level_text"`
	Options      datatypes.JSONSlice[string] `gorm:"not null"`
	CorrectIndex int                         `gorm:"not null"`
	Points       int                         `gorm:"not null;default:1"`
	Category     string                      `gorm:"size:64;not null;default:''"`
	Position     int                         `gorm:"not null;default:0"`
	CreatedAt    time.Time                   `gorm:"not null"`
	UpdatedAt    time.Time                   `gorm:"not null"`
}

func (q Question) Trivia() trivia.Question {
	return trivia.Question{
		ID:           q.ID,
		Level:        q.Level,
		Text:         q.Text,
		Options:      append([]string(nil), q.Options...),
		CorrectIndex: q.CorrectIndex,
		Points:       q.Points,
	}
}
