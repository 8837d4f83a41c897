package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Bind                     string
	Port                     int
	PublicBaseURL            string
	DatabaseDriver           string
	DatabaseURL              string
	AutoMigrate              bool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	LogLevel                 string
	LogPretty                bool
	AllowedOrigins           []string
	TriviaMaxParticipants    int
	QuestionsPerLevel        int
	RequireAccessCode        bool
	ResultsPublic            bool
	CostumeModeration        bool
	GuestbookModeration      bool
	MaxVideoBytes            int64
	MaxPhotoBytes            int64
	MediaDir                 string
	AdminSessionTTL          time.Duration
	FirebaseCredentialsFile  string
	FirebaseProjectID        string
	FirebaseStorageBucket    string
	FirebaseDatabaseURL      string
}

func Default() Config {
	return Config{
		Bind:                     "0.0.0.0",
		Port:                     8080,
		PublicBaseURL:            "http://localhost:8080",
		DatabaseDriver:           DriverPostgres,
		AutoMigrate:              false,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		LogLevel:                 "info",
		TriviaMaxParticipants:    8,
		QuestionsPerLevel:        0,
		RequireAccessCode:        false,
		ResultsPublic:            true,
		CostumeModeration:        true,
		GuestbookModeration:      true,
		MaxVideoBytes:            50 << 20,
		MaxPhotoBytes:            8 << 20,
		MediaDir:                 "uploads",
		AdminSessionTTL:          12 * time.Hour,
	}
}

// NewViper returns a viper instance preloaded with defaults. Keys map to
// upper-case environment variables with dashes replaced by underscores,
// so "database-url" reads DATABASE_URL.
func NewViper() *viper.Viper {
	def := Default()
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("bind", def.Bind)
	v.SetDefault("port", def.Port)
	v.SetDefault("public-base-url", def.PublicBaseURL)
	v.SetDefault("database-driver", def.DatabaseDriver)
	v.SetDefault("database-url", def.DatabaseURL)
	v.SetDefault("auto-migrate", def.AutoMigrate)
	v.SetDefault("db-max-open-conns", def.DBMaxOpenConns)
	v.SetDefault("db-max-idle-conns", def.DBMaxIdleConns)
	v.SetDefault("db-conn-max-lifetime-seconds", def.DBConnMaxLifetimeSeconds)
	v.SetDefault("db-conn-max-idle-seconds", def.DBConnMaxIdleTimeSeconds)
	v.SetDefault("log-level", def.LogLevel)
	v.SetDefault("log-pretty", def.LogPretty)
	v.SetDefault("allowed-origins", "")
	v.SetDefault("trivia-max-participants", def.TriviaMaxParticipants)
	v.SetDefault("questions-per-level", def.QuestionsPerLevel)
	v.SetDefault("require-access-code", def.RequireAccessCode)
	v.SetDefault("results-public", def.ResultsPublic)
	v.SetDefault("costume-moderation", def.CostumeModeration)
	v.SetDefault("guestbook-moderation", def.GuestbookModeration)
	v.SetDefault("max-video-bytes", def.MaxVideoBytes)
	v.SetDefault("max-photo-bytes", def.MaxPhotoBytes)
	v.SetDefault("media-dir", def.MediaDir)
	v.SetDefault("admin-session-ttl", def.AdminSessionTTL)
	v.SetDefault("firebase-credentials-file", "")
	v.SetDefault("firebase-project-id", "")
	v.SetDefault("firebase-storage-bucket", "")
	v.SetDefault("firebase-database-url", "")
	return v
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Bind:                     v.GetString("bind"),
		Port:                     v.GetInt("port"),
		PublicBaseURL:            strings.TrimSuffix(v.GetString("public-base-url"), "/"),
		DatabaseDriver:           strings.ToLower(strings.TrimSpace(v.GetString("database-driver"))),
		DatabaseURL:              v.GetString("database-url"),
		AutoMigrate:              v.GetBool("auto-migrate"),
		DBMaxOpenConns:           v.GetInt("db-max-open-conns"),
		DBMaxIdleConns:           v.GetInt("db-max-idle-conns"),
		DBConnMaxLifetimeSeconds: v.GetInt("db-conn-max-lifetime-seconds"),
		DBConnMaxIdleTimeSeconds: v.GetInt("db-conn-max-idle-seconds"),
		LogLevel:                 v.GetString("log-level"),
		LogPretty:                v.GetBool("log-pretty"),
		AllowedOrigins:           splitList(v.GetString("allowed-origins")),
		TriviaMaxParticipants:    v.GetInt("trivia-max-participants"),
		QuestionsPerLevel:        v.GetInt("questions-per-level"),
		RequireAccessCode:        v.GetBool("require-access-code"),
		ResultsPublic:            v.GetBool("results-public"),
		CostumeModeration:        v.GetBool("costume-moderation"),
		GuestbookModeration:      v.GetBool("guestbook-moderation"),
		MaxVideoBytes:            v.GetInt64("max-video-bytes"),
		MaxPhotoBytes:            v.GetInt64("max-photo-bytes"),
		MediaDir:                 v.GetString("media-dir"),
		AdminSessionTTL:          v.GetDuration("admin-session-ttl"),
		FirebaseCredentialsFile:  v.GetString("firebase-credentials-file"),
		FirebaseProjectID:        v.GetString("firebase-project-id"),
		FirebaseStorageBucket:    v.GetString("firebase-storage-bucket"),
		FirebaseDatabaseURL:      v.GetString("firebase-database-url"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.DatabaseDriver)
	}
	if c.TriviaMaxParticipants <= 0 {
		return errors.New("trivia max participants must be positive")
	}
	if c.QuestionsPerLevel < 0 {
		return errors.New("questions per level must not be negative")
	}
	if c.MaxVideoBytes <= 0 || c.MaxPhotoBytes <= 0 {
		return errors.New("upload limits must be positive")
	}
	if c.AdminSessionTTL <= 0 {
		return errors.New("admin session ttl must be positive")
	}
	return nil
}

// FirebaseEnabled reports whether a service account was configured.
func (c Config) FirebaseEnabled() bool {
	return strings.TrimSpace(c.FirebaseCredentialsFile) != ""
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
