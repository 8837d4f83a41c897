package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"hill-valley/internal/access"
	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var errInvalidCredentials = errors.New("invalid email or password")

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"omitempty,name"`
	AccessCode  string `json:"access_code" binding:"required"`
}

var signupMessages = bindMessages{
	"Email":       {"required": "email is required", "email": "email is invalid"},
	"Password":    {"required": "password is required", "min": "password must be at least 8 characters"},
	"DisplayName": {"name": "display name contains unsupported characters"},
	"AccessCode":  {"required": "access code is required"},
}

type AdminStats struct {
	Games           map[string]int64 `json:"games"`
	Participants    int64            `json:"participants"`
	Questions       int64            `json:"questions"`
	CostumesTotal   int64            `json:"costumes_total"`
	CostumesPending int64            `json:"costumes_pending"`
	Votes           int64            `json:"votes"`
	GuestbookTotal  int64            `json:"guestbook_total"`
	GuestbookQueue  int64            `json:"guestbook_pending"`
	Props           int64            `json:"props"`
	AdminUsers      int64            `json:"admin_users"`
	AccessCodes     int64            `json:"access_codes"`
	LiveSockets     int              `json:"live_voting_sockets"`
	Voting          VotingStatus     `json:"voting"`
}

type EventView struct {
	ID          uint           `json:"id"`
	Type        string         `json:"type"`
	Actor       string         `json:"actor"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Payload     datatypes.JSON `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, bindMessages{
		"Email":    {"required": "email is required", "email": "email is invalid"},
		"Password": {"required": "password is required"},
	}, "") {
		return
	}
	var user db.AdminUser
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusUnauthorized, errInvalidCredentials.Error())
			return
		}
		writeServerError(c, "failed to load user", err)
		return
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		log.Info().Str("email", user.Email).Msg("admin login rejected")
		writeError(c, http.StatusUnauthorized, errInvalidCredentials.Error())
		return
	}
	if !user.Active {
		writeError(c, http.StatusForbidden, "account is disabled")
		return
	}
	if _, err := s.sessions.Create(c, user.ID); err != nil {
		writeServerError(c, "failed to create session", err)
		return
	}
	if purged, err := s.sessions.Purge(); err == nil && purged > 0 {
		log.Debug().Int64("sessions", purged).Msg("purged expired admin sessions")
	}
	s.touchLogin(&user)
	c.Set(ctxAdminUser, &user)
	s.recordEvent(c, "admin_login", "admin_user", user.ID, EventPayload{Role: user.Role})
	c.JSON(http.StatusOK, gin.H{"user": adminUserView(user)})
}

func (s *Server) handleAdminLogout(c *gin.Context) {
	s.sessions.Destroy(c)
	c.Status(http.StatusNoContent)
}

// handleAdminSignup creates a dashboard account for holders of an admin
// access code. The first account ever created becomes an admin.
func (s *Server) handleAdminSignup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req, signupMessages, "") {
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		writeServerError(c, "failed to hash password", err)
		return
	}
	user := db.AdminUser{
		Email:        normalizeEmail(req.Email),
		DisplayName:  normalizeText(req.DisplayName),
		PasswordHash: hash,
		Role:         db.RoleEditor,
		Active:       true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var code db.AccessCode
		if err := tx.Where("code = ?", access.Normalize(req.AccessCode)).First(&code).Error; err != nil {
			if db.IsNotFound(err) {
				return access.ErrNotFound
			}
			return err
		}
		if err := code.Check(access.PurposeAdmin, s.now()); err != nil {
			return err
		}
		if err := redeemAccessCode(tx, &code); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&db.AdminUser{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			user.Role = db.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if status := accessStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "an account with that email already exists")
			return
		}
		writeServerError(c, "failed to create account", err)
		return
	}
	if _, err := s.sessions.Create(c, user.ID); err != nil {
		writeServerError(c, "failed to create session", err)
		return
	}
	c.Set(ctxAdminUser, &user)
	log.Info().Str("email", user.Email).Str("role", user.Role).Msg("admin account created")
	s.recordEvent(c, "admin_signup", "admin_user", user.ID, EventPayload{Role: user.Role})
	c.JSON(http.StatusCreated, gin.H{"user": adminUserView(user)})
}

func (s *Server) handleAdminMe(c *gin.Context) {
	user, _ := adminFromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": adminUserView(*user), "via": c.GetString(ctxAdminVia)})
}

func (s *Server) handleAdminStats(c *gin.Context) {
	stats, err := s.loadStats()
	if err != nil {
		writeServerError(c, "failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) loadStats() (AdminStats, error) {
	stats := AdminStats{
		Games: map[string]int64{
			db.GameStatusWaiting:   0,
			db.GameStatusActive:    0,
			db.GameStatusCompleted: 0,
		},
	}
	var byStatus []struct {
		Status string
		Total  int64
	}
	if err := s.db.Model(&db.Game{}).Select("status, COUNT(*) AS total").Group("status").Scan(&byStatus).Error; err != nil {
		return stats, err
	}
	for _, row := range byStatus {
		stats.Games[row.Status] = row.Total
	}
	counts := []struct {
		model any
		where string
		dest  *int64
	}{
		{&db.Participant{}, "", &stats.Participants},
		{&db.Question{}, "", &stats.Questions},
		{&db.Costume{}, "", &stats.CostumesTotal},
		{&db.Costume{}, "approved = ?", &stats.CostumesPending},
		{&db.Vote{}, "", &stats.Votes},
		{&db.GuestbookMessage{}, "", &stats.GuestbookTotal},
		{&db.GuestbookMessage{}, "approved = ?", &stats.GuestbookQueue},
		{&db.Prop{}, "", &stats.Props},
		{&db.AdminUser{}, "", &stats.AdminUsers},
		{&db.AccessCode{}, "", &stats.AccessCodes},
	}
	for _, count := range counts {
		query := s.db.Model(count.model)
		if count.where != "" {
			query = query.Where(count.where, false)
		}
		if err := query.Count(count.dest).Error; err != nil {
			return stats, err
		}
	}
	status, err := s.votingStatus()
	if err != nil {
		return stats, err
	}
	stats.Voting = status
	stats.LiveSockets = s.ws.Count(topicVoting)
	return stats, nil
}

func (s *Server) handleAdminEvents(c *gin.Context) {
	page, perPage := parsePagination(c, adminPerPage, adminMaxPerPage)
	query := s.db.Model(&db.Event{})
	if eventType := strings.TrimSpace(c.Query("type")); eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServerError(c, "failed to count events", err)
		return
	}
	var events []db.Event
	if err := query.Order("created_at desc, id desc").Limit(perPage).Offset(pageOffset(page, perPage)).Find(&events).Error; err != nil {
		writeServerError(c, "failed to load events", err)
		return
	}
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, EventView{
			ID:          event.ID,
			Type:        event.Type,
			Actor:       event.Actor,
			SubjectType: event.SubjectType,
			SubjectID:   event.SubjectID,
			Payload:     event.Payload,
			CreatedAt:   event.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"events":     views,
		"pagination": buildPaginationData("/api/admin/events", page, perPage, total),
	})
}
