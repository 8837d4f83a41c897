package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"hill-valley/internal/access"
	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const voterCookieMaxAge = 365 * 24 * 60 * 60

var errAdminNotLinked = errors.New("firebase account is not linked to an admin")

// requireParticipant authenticates /games/:id/participants/:pid routes with
// the participant's token.
func (s *Server) requireParticipant() gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := parseID(c.Param("id"))
		if !ok {
			writeError(c, http.StatusNotFound, "game not found")
			return
		}
		participantID, ok := parseID(c.Param("pid"))
		if !ok {
			writeError(c, http.StatusNotFound, "participant not found")
			return
		}
		participant, err := s.store.Participant(gameID, participantID)
		if err != nil {
			if errors.Is(err, ErrParticipantNotFound) {
				writeError(c, http.StatusNotFound, "participant not found")
				return
			}
			writeServerError(c, "failed to load participant", err)
			return
		}
		provided := strings.TrimSpace(c.GetHeader(headerParticipantToken))
		if provided == "" {
			writeError(c, http.StatusUnauthorized, "participant token required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(participant.AuthToken)) != 1 {
			writeError(c, http.StatusForbidden, "invalid participant token")
			return
		}
		c.Set(ctxParticipant, participant)
		c.Next()
	}
}

func participantFromContext(c *gin.Context) *db.Participant {
	value, ok := c.Get(ctxParticipant)
	if !ok {
		return nil
	}
	participant, _ := value.(*db.Participant)
	return participant
}

// voterID returns the caller's anonymous voter id, issuing the hv_voter
// cookie on first contact.
func (s *Server) voterID(c *gin.Context) string {
	if id := c.GetString(ctxVoter); id != "" {
		return id
	}
	if raw, err := c.Cookie(cookieVoter); err == nil {
		if parsed, err := uuid.Parse(raw); err == nil {
			c.Set(ctxVoter, parsed.String())
			return parsed.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieVoter,
		Value:    id,
		Path:     "/",
		MaxAge:   voterCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(ctxVoter, id)
	return id
}

// requireGuestAccess gates guest write routes behind a redeemed guest code
// when access codes are required. A hv_access redemption cookie passes as
// long as its code stays valid; a raw X-Access-Code header is redeemed on
// the spot, spending a use and issuing the cookie.
func (s *Server) requireGuestAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.RequireAccessCode {
			c.Next()
			return
		}
		code := access.Normalize(c.GetHeader(headerAccessCode))
		held, err := s.heldRedemption(c)
		if err != nil {
			writeServerError(c, "failed to check access code", err)
			return
		}
		if held != nil && (code == "" || code == held.AccessCode.Code) {
			if err := held.AccessCode.CheckRedeemed(access.PurposeGuest, s.now()); err != nil {
				writeError(c, http.StatusForbidden, err.Error())
				return
			}
			c.Next()
			return
		}
		if code == "" {
			writeError(c, http.StatusForbidden, "access code required")
			return
		}
		var record db.AccessCode
		if err := s.db.Where("code = ?", code).First(&record).Error; err != nil {
			if db.IsNotFound(err) {
				writeError(c, http.StatusForbidden, access.ErrNotFound.Error())
				return
			}
			writeServerError(c, "failed to check access code", err)
			return
		}
		if err := s.redeemForHolder(c, &record); err != nil {
			if accessStatus(err) == http.StatusInternalServerError {
				writeServerError(c, "failed to redeem access code", err)
				return
			}
			writeError(c, http.StatusForbidden, err.Error())
			return
		}
		c.Next()
	}
}

// requireAdmin accepts a Firebase ID token in the Authorization header or
// the hv_admin session cookie.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, via, err := s.authenticateAdmin(c)
		if err != nil || user == nil {
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				log.Debug().Err(err).Str("path", c.FullPath()).Msg("admin authentication failed")
			}
			writeError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !user.Active {
			writeError(c, http.StatusForbidden, "account is disabled")
			return
		}
		c.Set(ctxAdminUser, user)
		c.Set(ctxAdminVia, via)
		c.Next()
	}
}

func (s *Server) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := adminFromContext(c)
		if !ok || user.Role != role {
			writeError(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func adminFromContext(c *gin.Context) (*db.AdminUser, bool) {
	value, ok := c.Get(ctxAdminUser)
	if !ok {
		return nil, false
	}
	user, ok := value.(*db.AdminUser)
	return user, ok && user != nil
}

func (s *Server) authenticateAdmin(c *gin.Context) (*db.AdminUser, string, error) {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		user, err := s.adminFromFirebase(c, token)
		return user, "firebase", err
	}
	user, err := s.sessions.Lookup(c)
	return user, "session", err
}

// adminFromFirebase resolves a verified token to an admin account, linking
// the Firebase uid on first use when the verified email matches.
func (s *Server) adminFromFirebase(c *gin.Context, token string) (*db.AdminUser, error) {
	if s.verifier == nil {
		return nil, errors.New("firebase authentication is not configured")
	}
	identity, err := s.verifier.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	var user db.AdminUser
	err = s.db.Where("firebase_uid = ?", identity.UID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}
	if identity.Email == "" || !identity.EmailVerified {
		return nil, errAdminNotLinked
	}
	err = s.db.Where("email = ? AND firebase_uid = ?", strings.ToLower(identity.Email), "").First(&user).Error
	if db.IsNotFound(err) {
		return nil, errAdminNotLinked
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&user).Update("firebase_uid", identity.UID).Error; err != nil {
		return nil, err
	}
	log.Info().Str("email", user.Email).Msg("linked firebase account to admin")
	return &user, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func (s *Server) touchLogin(user *db.AdminUser) {
	now := s.now()
	if err := s.db.Model(user).Update("last_login_at", now).Error; err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to record login time")
		return
	}
	user.LastLoginAt = timePtr(now)
}
