package server

import (
	"encoding/json"
	"fmt"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

type EventPayload struct {
	GameID        uint   `json:"game_id,omitempty"`
	JoinCode      string `json:"join_code,omitempty"`
	Participant   string `json:"participant,omitempty"`
	ParticipantID uint   `json:"participant_id,omitempty"`
	CostumeID     uint   `json:"costume_id,omitempty"`
	PreviousID    uint   `json:"previous_costume_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Status        string `json:"status,omitempty"`
	Role          string `json:"role,omitempty"`
	Score         int    `json:"score,omitempty"`
	Count         int    `json:"count,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// recordEvent appends an audit entry. Failures are only logged.
func (s *Server) recordEvent(c *gin.Context, eventType, subjectType string, subjectID any, payload EventPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("encode event payload")
		return
	}
	event := db.Event{
		Type:        eventType,
		Actor:       s.actorName(c),
		SubjectType: subjectType,
		SubjectID:   fmt.Sprint(subjectID),
		Payload:     datatypes.JSON(data),
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("record event")
	}
}

func (s *Server) actorName(c *gin.Context) string {
	if c == nil {
		return "system"
	}
	if user, ok := adminFromContext(c); ok {
		return "admin:" + user.Email
	}
	if voter := c.GetString(ctxVoter); voter != "" {
		return "voter:" + voter
	}
	return "guest"
}
