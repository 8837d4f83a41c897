package server

import (
	"errors"
	"net/http"
	"time"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errSessionExpired = errors.New("session expired")

// sessionStore keeps admin dashboard logins in the sessions table.
type sessionStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func newSessionStore(conn *gorm.DB, ttl time.Duration, now func() time.Time) *sessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &sessionStore{db: conn, ttl: ttl, now: now}
}

func (s *sessionStore) Create(c *gin.Context, userID uuid.UUID) (db.Session, error) {
	record := db.Session{
		ID:          newToken(),
		AdminUserID: userID,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return db.Session{}, err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieAdmin,
		Value:    record.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return record, nil
}

// Lookup returns the active admin user for the request's session cookie.
func (s *sessionStore) Lookup(c *gin.Context) (*db.AdminUser, error) {
	id, err := c.Cookie(cookieAdmin)
	if err != nil || id == "" {
		return nil, http.ErrNoCookie
	}
	var record db.Session
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	if !record.ExpiresAt.After(s.now()) {
		_ = s.db.Delete(&record).Error
		return nil, errSessionExpired
	}
	var user db.AdminUser
	if err := s.db.Where("id = ?", record.AdminUserID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *sessionStore) Destroy(c *gin.Context) {
	if id, err := c.Cookie(cookieAdmin); err == nil && id != "" {
		_ = s.db.Where("id = ?", id).Delete(&db.Session{}).Error
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieAdmin,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// DestroyUser drops every session belonging to a user, used when an
// account is deactivated or deleted.
func (s *sessionStore) DestroyUser(userID uuid.UUID) error {
	return s.db.Where("admin_user_id = ?", userID).Delete(&db.Session{}).Error
}

// Purge removes expired sessions.
func (s *sessionStore) Purge() (int64, error) {
	result := s.db.Where("expires_at <= ?", s.now()).Delete(&db.Session{})
	return result.RowsAffected, result.Error
}
