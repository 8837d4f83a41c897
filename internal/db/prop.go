package db

import "time"

// Prop is a themed item shown on the event's prop table page.
type Prop struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:120;not null;uniqueIndex"`
	Description  string    `gorm:"size:1000;not null;default:''"`
	Category     string    `gorm:"size:64;not null;default:''"`
	ImageKey     string    `gorm:"size:255;not null;default:''"`
	DisplayOrder int       `gorm:"not null;default:0"`
	Visible      bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
