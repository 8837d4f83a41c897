package server

import (
	"net/http"
	"strings"
	"time"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gameRequest struct {
	Title           string `json:"title" binding:"omitempty,title"`
	MaxParticipants int    `json:"max_participants" binding:"omitempty,min=1,max=100"`
}

var gameMessages = bindMessages{
	"Title":           {"title": "title must be 1-120 letters, digits or punctuation"},
	"MaxParticipants": {"min": "max_participants must be between 1 and 100", "max": "max_participants must be between 1 and 100"},
}

type gameSummary struct {
	ID              uint      `json:"id"`
	JoinCode        string    `json:"join_code"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	MaxParticipants int       `json:"max_participants"`
	Participants    int64     `json:"participants"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Server) handleAdminListGames(c *gin.Context) {
	page, perPage := parsePagination(c, adminPerPage, adminMaxPerPage)
	query := s.db.Model(&db.Game{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServerError(c, "failed to count games", err)
		return
	}
	var games []db.Game
	if err := query.Order("created_at desc, id desc").Limit(perPage).Offset(pageOffset(page, perPage)).Find(&games).Error; err != nil {
		writeServerError(c, "failed to load games", err)
		return
	}
	ids := make([]uint, 0, len(games))
	for _, game := range games {
		ids = append(ids, game.ID)
	}
	var counts []struct {
		GameID uint
		Total  int64
	}
	if len(ids) > 0 {
		if err := s.db.Model(&db.Participant{}).
			Select("game_id, COUNT(*) AS total").
			Where("game_id IN ?", ids).
			Group("game_id").
			Scan(&counts).Error; err != nil {
			writeServerError(c, "failed to count participants", err)
			return
		}
	}
	byGame := make(map[uint]int64, len(counts))
	for _, row := range counts {
		byGame[row.GameID] = row.Total
	}
	summaries := make([]gameSummary, 0, len(games))
	for _, game := range games {
		summaries = append(summaries, gameSummary{
			ID:              game.ID,
			JoinCode:        game.JoinCode,
			Title:           game.Title,
			Status:          game.Status,
			MaxParticipants: game.MaxParticipants,
			Participants:    byGame[game.ID],
			CreatedAt:       game.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"games":      summaries,
		"pagination": buildPaginationData("/api/admin/games", page, perPage, total),
	})
}

func (s *Server) handleAdminCreateGame(c *gin.Context) {
	var req gameRequest
	if !bindJSON(c, &req, gameMessages, "") {
		return
	}
	maxParticipants := req.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = s.cfg.TriviaMaxParticipants
	}
	title := normalizeText(req.Title)
	game, err := s.store.CreateGame(title, maxParticipants)
	if err != nil {
		writeServerError(c, "failed to create game", err)
		return
	}
	log.Info().Uint("game_id", game.ID).Str("join_code", game.JoinCode).Msg("game created")
	s.recordEvent(c, "game_created", "game", game.ID, EventPayload{GameID: game.ID, JoinCode: game.JoinCode, Name: title})
	c.JSON(http.StatusCreated, gameView(*game))
}

func (s *Server) handleAdminGetGame(c *gin.Context) {
	game, err := s.store.FindGame(c.Param("id"))
	if err != nil {
		writeError(c, storeStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"game":        gameView(*game),
		"leaderboard": leaderboard(game.Participants),
	})
}

func (s *Server) handleAdminUpdateGame(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, ErrGameNotFound.Error())
		return
	}
	var req gameRequest
	if !bindJSON(c, &req, gameMessages, "") {
		return
	}
	var game db.Game
	if err := s.db.First(&game, id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, ErrGameNotFound.Error())
			return
		}
		writeServerError(c, "failed to load game", err)
		return
	}
	updates := map[string]any{"title": normalizeText(req.Title)}
	if req.MaxParticipants > 0 {
		var joined int64
		if err := s.db.Model(&db.Participant{}).Where("game_id = ?", id).Count(&joined).Error; err != nil {
			writeServerError(c, "failed to count participants", err)
			return
		}
		if int64(req.MaxParticipants) < joined {
			writeError(c, http.StatusConflict, "max_participants is below the current participant count")
			return
		}
		updates["max_participants"] = req.MaxParticipants
	}
	if err := s.db.Model(&game).Updates(updates).Error; err != nil {
		writeServerError(c, "failed to update game", err)
		return
	}
	s.recordEvent(c, "game_updated", "game", id, EventPayload{GameID: id, Name: game.Title})
	s.broadcastGame(id)
	s.handleAdminGetGame(c)
}

func (s *Server) handleAdminDeleteGame(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, ErrGameNotFound.Error())
		return
	}
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&db.Participant{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Game{}, id)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		writeServerError(c, "failed to delete game", err)
		return
	}
	if deleted == 0 {
		writeError(c, http.StatusNotFound, ErrGameNotFound.Error())
		return
	}
	s.recordEvent(c, "game_deleted", "game", id, EventPayload{GameID: id})
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminStartGame(c *gin.Context) {
	s.setGameStatus(c, db.GameStatusActive, "game_started")
}

func (s *Server) handleAdminEndGame(c *gin.Context) {
	s.setGameStatus(c, db.GameStatusCompleted, "game_ended")
}

func (s *Server) setGameStatus(c *gin.Context, status, eventType string) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, ErrGameNotFound.Error())
		return
	}
	game, err := s.store.SetStatus(id, status)
	if err != nil {
		if code := storeStatus(err); code != http.StatusInternalServerError {
			writeError(c, code, err.Error())
			return
		}
		writeServerError(c, "failed to update game", err)
		return
	}
	log.Info().Uint("game_id", game.ID).Str("status", status).Msg("game status changed")
	s.recordEvent(c, eventType, "game", game.ID, EventPayload{GameID: game.ID, Status: status})
	s.publish(triviaTopic(game.ID), triviaUpdate(*game))
	c.JSON(http.StatusOK, gameView(*game))
}
