package access

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	if got := Normalize("  otm-1955 ab "); got != "OTM1955AB" {
		t.Fatalf("unexpected normalized code %q", got)
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2015, 10, 21, 16, 29, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		code    Code
		purpose string
		want    error
	}{
		{"valid", Code{Purpose: PurposeGuest, Active: true}, PurposeGuest, nil},
		{"inactive", Code{Purpose: PurposeGuest}, PurposeGuest, ErrInactive},
		{"wrong purpose", Code{Purpose: PurposeGuest, Active: true}, PurposeAdmin, ErrWrongPurpose},
		{"expired", Code{Purpose: PurposeGuest, Active: true, ExpiresAt: &past}, PurposeGuest, ErrExpired},
		{"not yet expired", Code{Purpose: PurposeGuest, Active: true, ExpiresAt: &future}, PurposeGuest, nil},
		{"exhausted", Code{Purpose: PurposeAdmin, Active: true, MaxUses: 2, Uses: 2}, PurposeAdmin, ErrExhausted},
		{"uses left", Code{Purpose: PurposeAdmin, Active: true, MaxUses: 2, Uses: 1}, PurposeAdmin, nil},
		{"unlimited", Code{Purpose: PurposeGuest, Active: true, Uses: 500}, PurposeGuest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.code, tt.purpose, now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckRedeemedIgnoresUses(t *testing.T) {
	now := time.Now()
	code := Code{Purpose: PurposeGuest, Active: true, MaxUses: 1, Uses: 1}
	if err := CheckRedeemed(code, PurposeGuest, now); err != nil {
		t.Fatalf("expected redeemed code to stay valid, got %v", err)
	}
	code.Active = false
	if err := CheckRedeemed(code, PurposeGuest, now); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	code := Generate(10)
	if len(code) != 10 {
		t.Fatalf("expected 10 characters, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("unexpected character %q in %q", r, code)
		}
	}
	if Normalize(code) != code {
		t.Fatalf("generated code should already be normalized")
	}
}
