package db

import (
	"time"

	"hill-valley/internal/access"
)

type AccessCode struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"size:32;not null;uniqueIndex"`
	Label     string `gorm:"size:120;not null;default:''"`
	Purpose   string `gorm:"size:16;not null;default:'guest'"`
	Active    bool   `gorm:"not null"`
	MaxUses   int    `gorm:"not null;default:0"`
	Uses      int    `gorm:"not null;default:0"`
	ExpiresAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (c AccessCode) Check(purpose string, now time.Time) error {
	return access.Check(c.code(), purpose, now)
}

func (c AccessCode) code() access.Code {
	return access.Code{
		Purpose:   c.Purpose,
		Active:    c.Active,
		MaxUses:   c.MaxUses,
		Uses:      c.Uses,
		ExpiresAt: c.ExpiresAt,
	}
}

// CheckRedeemed validates a code its holder already redeemed.
func (c AccessCode) CheckRedeemed(purpose string, now time.Time) error {
	return access.CheckRedeemed(c.code(), purpose, now)
}

// AccessRedemption is one holder's redeemed use of a guest code. Its token
// is what the hv_access cookie carries.
type AccessRedemption struct {
	ID           uint       `gorm:"primaryKey"`
	AccessCodeID uint       `gorm:"not null;index"`
	AccessCode   AccessCode `gorm:"constraint:OnDelete:CASCADE"`
	Token        string     `gorm:"size:64;not null;uniqueIndex"`
	CreatedAt    time.Time  `gorm:"not null"`
}
