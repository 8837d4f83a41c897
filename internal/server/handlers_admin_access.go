package server

import (
	"net/http"
	"net/url"
	"time"

	"hill-valley/internal/access"
	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const generatedCodeLength = 8

type accessCodeRequest struct {
	Code      string     `json:"code" binding:"omitempty,max=32"`
	Label     string     `json:"label" binding:"omitempty,max=120"`
	Purpose   string     `json:"purpose" binding:"omitempty,oneof=guest admin"`
	MaxUses   int        `json:"max_uses" binding:"min=0"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type updateAccessCodeRequest struct {
	Label        *string    `json:"label" binding:"omitempty,max=120"`
	Active       *bool      `json:"active"`
	MaxUses      *int       `json:"max_uses" binding:"omitempty,min=0"`
	ExpiresAt    *time.Time `json:"expires_at"`
	ClearExpiry  bool       `json:"clear_expiry"`
	ResetCounter bool       `json:"reset_uses"`
}

var accessCodeMessages = bindMessages{
	"Code":    {"max": "code must be 32 characters or fewer"},
	"Label":   {"max": "label must be 120 characters or fewer"},
	"Purpose": {"oneof": "purpose must be guest or admin"},
	"MaxUses": {"min": "max_uses cannot be negative"},
}

type AccessCodeView struct {
	ID        uint       `json:"id"`
	Code      string     `json:"code"`
	Label     string     `json:"label"`
	Purpose   string     `json:"purpose"`
	Active    bool       `json:"active"`
	MaxUses   int        `json:"max_uses"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Usable    bool       `json:"usable"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *Server) accessCodeView(record db.AccessCode) AccessCodeView {
	return AccessCodeView{
		ID:        record.ID,
		Code:      record.Code,
		Label:     record.Label,
		Purpose:   record.Purpose,
		Active:    record.Active,
		MaxUses:   record.MaxUses,
		Uses:      record.Uses,
		ExpiresAt: record.ExpiresAt,
		Usable:    record.Check(record.Purpose, s.now()) == nil,
		CreatedAt: record.CreatedAt,
	}
}

func (s *Server) handleAdminListAccessCodes(c *gin.Context) {
	query := s.db.Order("created_at desc, id desc")
	if purpose := c.Query("purpose"); purpose != "" {
		if !access.ValidPurpose(purpose) {
			writeError(c, http.StatusBadRequest, "purpose must be guest or admin")
			return
		}
		query = query.Where("purpose = ?", purpose)
	}
	var codes []db.AccessCode
	if err := query.Find(&codes).Error; err != nil {
		writeServerError(c, "failed to load access codes", err)
		return
	}
	views := make([]AccessCodeView, 0, len(codes))
	for _, code := range codes {
		views = append(views, s.accessCodeView(code))
	}
	c.JSON(http.StatusOK, gin.H{"access_codes": views})
}

func (s *Server) handleAdminCreateAccessCode(c *gin.Context) {
	var req accessCodeRequest
	if !bindJSON(c, &req, accessCodeMessages, "") {
		return
	}
	code := access.Normalize(req.Code)
	if req.Code != "" && code == "" {
		writeError(c, http.StatusBadRequest, "code must contain letters or digits")
		return
	}
	generated := code == ""
	if generated {
		code = access.Generate(generatedCodeLength)
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = access.PurposeGuest
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		writeError(c, http.StatusBadRequest, "expires_at must be in the future")
		return
	}
	record := db.AccessCode{
		Code:      code,
		Label:     normalizeText(req.Label),
		Purpose:   purpose,
		Active:    true,
		MaxUses:   req.MaxUses,
		ExpiresAt: utcPtr(req.ExpiresAt),
	}
	err := s.db.Create(&record).Error
	if err != nil && generated && db.IsDuplicate(err) {
		record.Code = access.Generate(generatedCodeLength)
		err = s.db.Create(&record).Error
	}
	if err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "that code already exists")
			return
		}
		writeServerError(c, "failed to create access code", err)
		return
	}
	log.Info().Str("code", record.Code).Str("purpose", record.Purpose).Msg("access code created")
	s.recordEvent(c, "access_code_created", "access_code", record.ID, EventPayload{Name: record.Label, Status: record.Purpose})
	c.JSON(http.StatusCreated, s.accessCodeView(record))
}

func (s *Server) loadAccessCode(c *gin.Context) (db.AccessCode, bool) {
	var record db.AccessCode
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, access.ErrNotFound.Error())
		return record, false
	}
	if err := s.db.First(&record, id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, access.ErrNotFound.Error())
			return record, false
		}
		writeServerError(c, "failed to load access code", err)
		return record, false
	}
	return record, true
}

func (s *Server) handleAdminUpdateAccessCode(c *gin.Context) {
	record, ok := s.loadAccessCode(c)
	if !ok {
		return
	}
	var req updateAccessCodeRequest
	if !bindJSON(c, &req, accessCodeMessages, "") {
		return
	}
	updates := map[string]any{}
	if req.Label != nil {
		record.Label = normalizeText(*req.Label)
		updates["label"] = record.Label
	}
	if req.Active != nil {
		record.Active = *req.Active
		updates["active"] = record.Active
	}
	if req.MaxUses != nil {
		record.MaxUses = *req.MaxUses
		updates["max_uses"] = record.MaxUses
	}
	if req.ResetCounter {
		record.Uses = 0
		updates["uses"] = 0
	}
	switch {
	case req.ClearExpiry:
		record.ExpiresAt = nil
		updates["expires_at"] = nil
	case req.ExpiresAt != nil:
		record.ExpiresAt = utcPtr(req.ExpiresAt)
		updates["expires_at"] = record.ExpiresAt
	}
	if len(updates) > 0 {
		if err := s.db.Model(&db.AccessCode{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
			writeServerError(c, "failed to update access code", err)
			return
		}
		s.recordEvent(c, "access_code_updated", "access_code", record.ID, EventPayload{Name: record.Label})
	}
	c.JSON(http.StatusOK, s.accessCodeView(record))
}

func (s *Server) handleAdminDeleteAccessCode(c *gin.Context) {
	record, ok := s.loadAccessCode(c)
	if !ok {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("access_code_id = ?", record.ID).Delete(&db.AccessRedemption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		writeServerError(c, "failed to delete access code", err)
		return
	}
	s.recordEvent(c, "access_code_deleted", "access_code", record.ID, EventPayload{Name: record.Label})
	c.Status(http.StatusNoContent)
}

// handleAccessCodeQR renders a QR code that opens the site with the code
// prefilled. Admin codes point at the dashboard signup instead.
func (s *Server) handleAccessCodeQR(c *gin.Context) {
	record, ok := s.loadAccessCode(c)
	if !ok {
		return
	}
	path := "/"
	if record.Purpose == access.PurposeAdmin {
		path = "/admin/login"
	}
	writeQR(c, s.publicURL(c, path, url.Values{"code": {record.Code}}))
}
