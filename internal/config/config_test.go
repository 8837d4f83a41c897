package config

import (
	"testing"
	"time"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(NewViper())
	if err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.DatabaseDriver)
	}
	if cfg.AdminSessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h session ttl, got %s", cfg.AdminSessionTTL)
	}
}

func TestFromViperReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("TRIVIA_MAX_PARTICIPANTS", "3")

	cfg, err := FromViper(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %#v", cfg.AllowedOrigins)
	}
	if cfg.TriviaMaxParticipants != 3 {
		t.Fatalf("expected 3 participants, got %d", cfg.TriviaMaxParticipants)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"participants", func(c *Config) { c.TriviaMaxParticipants = 0 }},
		{"per level", func(c *Config) { c.QuestionsPerLevel = -1 }},
		{"video", func(c *Config) { c.MaxVideoBytes = 0 }},
		{"ttl", func(c *Config) { c.AdminSessionTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
