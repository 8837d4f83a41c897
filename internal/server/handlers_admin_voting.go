package server

import (
	"net/http"
	"time"

	"hill-valley/internal/db"
	"hill-valley/internal/voting"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

type windowRequest struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

func (s *Server) handleAdminGetWindow(c *gin.Context) {
	s.handleVotingStatus(c)
}

func (s *Server) handleAdminSetWindow(c *gin.Context) {
	var req windowRequest
	if !bindJSON(c, &req, nil, "starts_at and ends_at must be RFC 3339 timestamps") {
		return
	}
	window := voting.Window{StartsAt: utcPtr(req.StartsAt), EndsAt: utcPtr(req.EndsAt)}
	if err := window.Validate(); err != nil {
		if status := windowStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		writeServerError(c, "failed to validate window", err)
		return
	}
	record := db.VotingWindow{ID: db.VotingWindowID, StartsAt: window.StartsAt, EndsAt: window.EndsAt}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"starts_at", "ends_at", "updated_at"}),
	}).Create(&record).Error; err != nil {
		writeServerError(c, "failed to save voting window", err)
		return
	}
	status, err := s.votingStatus()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return
	}
	log.Info().Str("state", string(status.State)).Msg("voting window updated")
	s.recordEvent(c, "voting_window_set", "voting_window", db.VotingWindowID, EventPayload{Status: string(status.State)})
	s.broadcastVoting()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleAdminClearWindow(c *gin.Context) {
	if err := s.db.Delete(&db.VotingWindow{}, db.VotingWindowID).Error; err != nil {
		writeServerError(c, "failed to clear voting window", err)
		return
	}
	s.recordEvent(c, "voting_window_cleared", "voting_window", db.VotingWindowID, EventPayload{})
	s.broadcastVoting()
	s.handleVotingStatus(c)
}

// handleAdminResults shows the live tally for every costume, including ones
// still awaiting approval, regardless of the window.
func (s *Server) handleAdminResults(c *gin.Context) {
	status, err := s.votingStatus()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return
	}
	results, total, err := s.tally(true)
	if err != nil {
		writeServerError(c, "failed to count votes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "total_votes": total, "voting": status})
}

func (s *Server) handleAdminResetVotes(c *gin.Context) {
	result := s.db.Where("1 = 1").Delete(&db.Vote{})
	if result.Error != nil {
		writeServerError(c, "failed to reset votes", result.Error)
		return
	}
	log.Warn().Int64("votes", result.RowsAffected).Msg("votes reset")
	s.recordEvent(c, "votes_reset", "voting_window", db.VotingWindowID, EventPayload{Count: int(result.RowsAffected)})
	s.broadcastVoting()
	c.JSON(http.StatusOK, gin.H{"deleted": result.RowsAffected})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return timePtr(t.UTC())
}
