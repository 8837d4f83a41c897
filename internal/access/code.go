// Package access validates the event access codes handed out to guests and
// to would-be dashboard admins.
package access

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"
)

const (
	PurposeGuest = "guest"
	PurposeAdmin = "admin"
)

const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	ErrNotFound     = errors.New("access code not found")
	ErrInactive     = errors.New("access code is inactive")
	ErrWrongPurpose = errors.New("access code is not valid here")
	ErrExpired      = errors.New("access code has expired")
	ErrExhausted    = errors.New("access code has no uses left")
)

// Code is the subset of an access code record the checks need.
type Code struct {
	Purpose   string
	Active    bool
	MaxUses   int
	Uses      int
	ExpiresAt *time.Time
}

func Normalize(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ValidPurpose(purpose string) bool {
	return purpose == PurposeGuest || purpose == PurposeAdmin
}

// Check reports why code cannot be redeemed for purpose at now, or nil.
func Check(code Code, purpose string, now time.Time) error {
	if !code.Active {
		return ErrInactive
	}
	if code.Purpose != purpose {
		return ErrWrongPurpose
	}
	if code.ExpiresAt != nil && !now.Before(*code.ExpiresAt) {
		return ErrExpired
	}
	if code.MaxUses > 0 && code.Uses >= code.MaxUses {
		return ErrExhausted
	}
	return nil
}

// CheckRedeemed is Check for a holder with a stored redemption. Uses are
// ignored because the holder's own use is already counted.
func CheckRedeemed(code Code, purpose string, now time.Time) error {
	code.MaxUses = 0
	return Check(code, purpose, now)
}

// Generate returns a random code of length n without ambiguous characters.
func Generate(n int) string {
	if n <= 0 {
		n = 8
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("A", n)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}
