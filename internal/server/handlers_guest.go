package server

import (
	"net/http"
	"time"

	"hill-valley/internal/access"
	"hill-valley/internal/db"
	"hill-valley/internal/media"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const accessCookieMaxAge = 30 * 24 * time.Hour

type verifyAccessRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) handleAccessVerify(c *gin.Context) {
	var req verifyAccessRequest
	if !bindJSON(c, &req, bindMessages{"Code": {"required": "code is required"}}, "") {
		return
	}
	code := access.Normalize(req.Code)
	now := s.now()

	var record db.AccessCode
	if err := s.db.Where("code = ?", code).First(&record).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, access.ErrNotFound.Error())
			return
		}
		writeServerError(c, "failed to load access code", err)
		return
	}

	held, err := s.heldRedemption(c)
	if err != nil {
		writeServerError(c, "failed to load access redemption", err)
		return
	}
	if held != nil && held.AccessCodeID == record.ID {
		if err := record.CheckRedeemed(access.PurposeGuest, now); err != nil {
			writeError(c, accessStatus(err), err.Error())
			return
		}
		s.setAccessCookie(c, record, held.Token)
		c.JSON(http.StatusOK, gin.H{"valid": true, "code": record.Code, "label": record.Label})
		return
	}

	if err := s.redeemForHolder(c, &record); err != nil {
		if status := accessStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		writeServerError(c, "failed to redeem access code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "code": record.Code, "label": record.Label})
}

// heldRedemption resolves the hv_access cookie to its redemption, with the
// code preloaded. A missing or unknown token yields nil.
func (s *Server) heldRedemption(c *gin.Context) (*db.AccessRedemption, error) {
	token, err := c.Cookie(cookieAccess)
	if err != nil || token == "" {
		return nil, nil
	}
	var redemption db.AccessRedemption
	if err := s.db.Preload("AccessCode").Where("token = ?", token).First(&redemption).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// redeemForHolder checks a guest code, spends one use and hands the caller a
// redemption token cookie so later requests do not spend another.
func (s *Server) redeemForHolder(c *gin.Context, record *db.AccessCode) error {
	if err := record.Check(access.PurposeGuest, s.now()); err != nil {
		return err
	}
	token := newToken()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := redeemAccessCode(tx, record); err != nil {
			return err
		}
		return tx.Create(&db.AccessRedemption{AccessCodeID: record.ID, Token: token}).Error
	})
	if err != nil {
		return err
	}
	s.setAccessCookie(c, *record, token)
	s.recordEvent(c, "access_code_redeemed", "access_code", record.ID, EventPayload{Name: record.Label, Count: record.Uses})
	return nil
}

// redeemAccessCode counts one use. The conditional update keeps concurrent
// redemptions from exceeding MaxUses.
func redeemAccessCode(conn *gorm.DB, record *db.AccessCode) error {
	result := conn.Model(&db.AccessCode{}).
		Where("id = ? AND (max_uses = 0 OR uses < max_uses)", record.ID).
		Update("uses", gorm.Expr("uses + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return access.ErrExhausted
	}
	record.Uses++
	return nil
}

func (s *Server) setAccessCookie(c *gin.Context, record db.AccessCode, token string) {
	maxAge := accessCookieMaxAge
	if record.ExpiresAt != nil {
		if left := record.ExpiresAt.Sub(s.now()); left < maxAge {
			maxAge = left
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieAccess,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleListProps(c *gin.Context) {
	var props []db.Prop
	if err := s.db.Where("visible = ?", true).Order("display_order asc, name asc").Find(&props).Error; err != nil {
		writeServerError(c, "failed to load props", err)
		return
	}
	views := make([]PropView, 0, len(props))
	for _, prop := range props {
		views = append(views, propView(prop))
	}
	c.JSON(http.StatusOK, gin.H{"props": views})
}

func (s *Server) handleListGuestbook(c *gin.Context) {
	page, perPage := parsePagination(c, 24, adminMaxPerPage)
	query := s.db.Model(&db.GuestbookMessage{}).Where("approved = ?", true).Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServerError(c, "failed to count messages", err)
		return
	}
	var messages []db.GuestbookMessage
	if err := query.Order("created_at desc").Limit(perPage).Offset(pageOffset(page, perPage)).Find(&messages).Error; err != nil {
		writeServerError(c, "failed to load messages", err)
		return
	}
	views := make([]GuestbookView, 0, len(messages))
	for _, m := range messages {
		views = append(views, guestbookView(m))
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   views,
		"pagination": buildPaginationData("/api/guestbook", page, perPage, total),
	})
}

func (s *Server) handleSubmitGuestbook(c *gin.Context) {
	if !parseUploadForm(c, s.cfg.MaxVideoBytes) {
		return
	}
	name, err := validateName(c.PostForm("guest_name"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	message, err := validateMessage(c.PostForm("message"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	obj, err := s.saveUpload(c, uploadSpec{
		Field:     "video",
		Prefix:    "guestbook",
		MaxBytes:  s.cfg.MaxVideoBytes,
		Extension: media.VideoExtension,
	})
	if err != nil {
		s.writeUploadError(c, err)
		return
	}
	entry := db.GuestbookMessage{
		GuestName:   name,
		Message:     message,
		VideoKey:    obj.Key,
		ContentType: obj.ContentType,
		SizeBytes:   obj.Size,
		Approved:    !s.cfg.GuestbookModeration,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.removeObject(c, obj.Key)
		writeServerError(c, "failed to save message", err)
		return
	}
	log.Info().Str("message_id", entry.ID.String()).Str("guest", name).Int64("bytes", obj.Size).Msg("guestbook message recorded")
	s.recordEvent(c, "guestbook_submitted", "guestbook", entry.ID, EventPayload{Name: name})
	c.JSON(http.StatusCreated, guestbookView(entry))
}
