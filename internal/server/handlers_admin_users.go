package server

import (
	"errors"
	"net/http"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errLastAdmin = errors.New("at least one active admin is required")

type createUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name" binding:"omitempty,name"`
	Role        string `json:"role" binding:"omitempty,oneof=admin editor"`
	FirebaseUID string `json:"firebase_uid" binding:"omitempty,max=128"`
}

type updateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role" binding:"omitempty,oneof=admin editor"`
	Active      *bool   `json:"active"`
	Password    *string `json:"password"`
}

var userMessages = bindMessages{
	"Email":       {"required": "email is required", "email": "email is invalid"},
	"DisplayName": {"name": "display name contains unsupported characters"},
	"Role":        {"oneof": "role must be admin or editor"},
	"FirebaseUID": {"max": "firebase_uid is too long"},
}

func (s *Server) handleAdminListUsers(c *gin.Context) {
	var users []db.AdminUser
	if err := s.db.Order("created_at asc").Find(&users).Error; err != nil {
		writeServerError(c, "failed to load users", err)
		return
	}
	views := make([]AdminUserView, 0, len(users))
	for _, user := range users {
		views = append(views, adminUserView(user))
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

// handleAdminCreateUser adds an account that signs in with a password, a
// linked Firebase identity, or both.
func (s *Server) handleAdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, userMessages, "") {
		return
	}
	if req.Password == "" && req.FirebaseUID == "" {
		writeError(c, http.StatusBadRequest, "password or firebase_uid is required")
		return
	}
	user := db.AdminUser{
		Email:       normalizeEmail(req.Email),
		DisplayName: normalizeText(req.DisplayName),
		FirebaseUID: req.FirebaseUID,
		Role:        db.RoleEditor,
		Active:      true,
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			writeError(c, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := hashPassword(req.Password)
		if err != nil {
			writeServerError(c, "failed to hash password", err)
			return
		}
		user.PasswordHash = hash
	}
	if err := s.db.Create(&user).Error; err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "an account with that email already exists")
			return
		}
		writeServerError(c, "failed to create user", err)
		return
	}
	log.Info().Str("email", user.Email).Str("role", user.Role).Msg("admin user created")
	s.recordEvent(c, "admin_user_created", "admin_user", user.ID, EventPayload{Name: user.Email, Role: user.Role})
	c.JSON(http.StatusCreated, adminUserView(user))
}

func (s *Server) loadAdminUser(c *gin.Context) (db.AdminUser, bool) {
	var user db.AdminUser
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "user not found")
		return user, false
	}
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "user not found")
			return user, false
		}
		writeServerError(c, "failed to load user", err)
		return user, false
	}
	return user, true
}

// ensureAdminRemains fails when no active admin other than exclude is left.
func ensureAdminRemains(tx *gorm.DB, exclude uuid.UUID) error {
	var others int64
	if err := tx.Model(&db.AdminUser{}).
		Where("role = ? AND active = ? AND id <> ?", db.RoleAdmin, true, exclude).
		Count(&others).Error; err != nil {
		return err
	}
	if others == 0 {
		return errLastAdmin
	}
	return nil
}

func (s *Server) handleAdminUpdateUser(c *gin.Context) {
	user, ok := s.loadAdminUser(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req, userMessages, "") {
		return
	}
	updates := map[string]any{}
	if req.DisplayName != nil {
		name := normalizeText(*req.DisplayName)
		if name != "" {
			clean, err := validateName(name)
			if err != nil {
				writeError(c, http.StatusBadRequest, "display name "+err.Error())
				return
			}
			name = clean
		}
		updates["display_name"] = name
		user.DisplayName = name
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeError(c, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			writeServerError(c, "failed to hash password", err)
			return
		}
		updates["password_hash"] = hash
	}
	losesAdmin := false
	if req.Role != nil && *req.Role != user.Role {
		losesAdmin = user.Role == db.RoleAdmin
		updates["role"] = *req.Role
		user.Role = *req.Role
	}
	deactivated := false
	if req.Active != nil && *req.Active != user.Active {
		deactivated = !*req.Active
		losesAdmin = losesAdmin || (deactivated && user.Role == db.RoleAdmin)
		updates["active"] = *req.Active
		user.Active = *req.Active
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, adminUserView(user))
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if losesAdmin {
			if err := ensureAdminRemains(tx, user.ID); err != nil {
				return err
			}
		}
		return tx.Model(&db.AdminUser{}).Where("id = ?", user.ID).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, errLastAdmin) {
			writeError(c, http.StatusConflict, err.Error())
			return
		}
		writeServerError(c, "failed to update user", err)
		return
	}
	if deactivated || updates["password_hash"] != nil {
		if err := s.sessions.DestroyUser(user.ID); err != nil {
			log.Warn().Err(err).Str("email", user.Email).Msg("failed to end user sessions")
		}
	}
	s.recordEvent(c, "admin_user_updated", "admin_user", user.ID, EventPayload{Name: user.Email, Role: user.Role})
	c.JSON(http.StatusOK, adminUserView(user))
}

func (s *Server) handleAdminDeleteUser(c *gin.Context) {
	user, ok := s.loadAdminUser(c)
	if !ok {
		return
	}
	if current, _ := adminFromContext(c); current != nil && current.ID == user.ID {
		writeError(c, http.StatusConflict, "you cannot delete your own account")
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if user.Role == db.RoleAdmin && user.Active {
			if err := ensureAdminRemains(tx, user.ID); err != nil {
				return err
			}
		}
		if err := tx.Where("admin_user_id = ?", user.ID).Delete(&db.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.AdminUser{}, "id = ?", user.ID).Error
	})
	if err != nil {
		if errors.Is(err, errLastAdmin) {
			writeError(c, http.StatusConflict, err.Error())
			return
		}
		writeServerError(c, "failed to delete user", err)
		return
	}
	log.Info().Str("email", user.Email).Msg("admin user deleted")
	s.recordEvent(c, "admin_user_deleted", "admin_user", user.ID, EventPayload{Name: user.Email})
	c.Status(http.StatusNoContent)
}
