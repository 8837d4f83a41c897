package db

import "time"

type Costume struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"size:120;not null"`
	WearerName string    `gorm:"size:64;not null"`
	PhotoKey   string    `gorm:"size:255;not null;default:''"`
	Approved   bool      `gorm:"not null;default:false;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Votes      []Vote
}

// Vote holds one vote per voter; changing a vote rewrites CostumeID.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	VoterID   string    `gorm:"size:64;not null;uniqueIndex"`
	CostumeID uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// VotingWindow is a singleton row with ID 1.
type VotingWindow struct {
	ID        uint `gorm:"primaryKey"`
	StartsAt  *time.Time
	EndsAt    *time.Time
	UpdatedAt time.Time `gorm:"not null"`
}

const VotingWindowID = 1
