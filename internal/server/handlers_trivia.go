package server

import (
	"net/http"
	"net/url"

	"hill-valley/internal/db"
	"hill-valley/internal/trivia"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type joinRequest struct {
	Name string `json:"name" binding:"required,name"`
}

var joinMessages = bindMessages{
	"Name": {
		"required": "name is required",
		"name":     "name must be 1-40 letters, digits or punctuation",
	},
}

type selectLevelsRequest struct {
	Levels []int `json:"levels" binding:"required,min=1,dive,min=1"`
}

type answerRequest struct {
	QuestionID uint `json:"question_id" binding:"required"`
	Option     *int `json:"option" binding:"required"`
}

type LevelSummary struct {
	Level     int `json:"level"`
	Questions int `json:"questions"`
}

type joinResponse struct {
	Game        GameView        `json:"game"`
	Participant ParticipantView `json:"participant"`
	Token       string          `json:"token"`
	Rejoined    bool            `json:"rejoined"`
}

type sessionResponse struct {
	Session     trivia.SessionView `json:"session"`
	Participant ParticipantView    `json:"participant"`
	Answer      *trivia.Answer     `json:"answer,omitempty"`
}

func (s *Server) handleTriviaLevels(c *gin.Context) {
	levels := make([]LevelSummary, 0)
	if err := s.db.Model(&db.Question{}).
		Select("level, COUNT(*) AS questions").
		Group("level").
		Order("level asc").
		Scan(&levels).Error; err != nil {
		writeServerError(c, "failed to load levels", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

func (s *Server) handleMatchGame(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req, joinMessages, "") {
		return
	}
	name, _ := validateName(req.Name)
	game, participant, err := s.store.MatchGame(name, s.cfg.TriviaMaxParticipants)
	if err != nil {
		if status := storeStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		writeServerError(c, "failed to match game", err)
		return
	}
	log.Info().Uint("game_id", game.ID).Str("join_code", game.JoinCode).Str("participant", name).Msg("participant matched")
	s.respondJoined(c, game.ID, participant, false)
}

func (s *Server) handleJoinGame(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req, joinMessages, "") {
		return
	}
	name, _ := validateName(req.Name)
	game, participant, rejoined, err := s.store.JoinGame(c.Param("id"), name)
	if err != nil {
		if status := storeStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		writeServerError(c, "failed to join game", err)
		return
	}
	log.Info().Uint("game_id", game.ID).Str("participant", name).Bool("rejoined", rejoined).Msg("participant joined")
	s.respondJoined(c, game.ID, participant, rejoined)
}

func (s *Server) respondJoined(c *gin.Context, gameID uint, participant *db.Participant, rejoined bool) {
	game, err := s.store.FindGame(idString(gameID))
	if err != nil {
		writeServerError(c, "failed to load game", err)
		return
	}
	if !rejoined {
		s.recordEvent(c, "participant_joined", "game", game.ID, EventPayload{
			GameID:        game.ID,
			JoinCode:      game.JoinCode,
			Participant:   participant.Name,
			ParticipantID: participant.ID,
		})
		s.publish(triviaTopic(game.ID), triviaUpdate(*game))
	}
	c.JSON(http.StatusOK, joinResponse{
		Game:        gameView(*game),
		Participant: participantView(*participant),
		Token:       participant.AuthToken,
		Rejoined:    rejoined,
	})
}

func (s *Server) handleGetGame(c *gin.Context) {
	game, err := s.store.FindGame(c.Param("id"))
	if err != nil {
		writeError(c, storeStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gameView(*game))
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	game, err := s.store.FindGame(c.Param("id"))
	if err != nil {
		writeError(c, storeStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"game_id":     game.ID,
		"status":      game.Status,
		"leaderboard": leaderboard(game.Participants),
	})
}

func (s *Server) handleGameQR(c *gin.Context) {
	game, err := s.store.FindGame(c.Param("id"))
	if err != nil {
		writeError(c, storeStatus(err), err.Error())
		return
	}
	writeQR(c, s.publicURL(c, "/trivia", url.Values{"game": {game.JoinCode}}))
}

func (s *Server) handleGetSession(c *gin.Context) {
	participant := participantFromContext(c)
	session, err := trivia.Decode(participant.SessionData)
	if err != nil {
		writeServerError(c, "failed to load session", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Session:     session.View(),
		Participant: participantView(*participant),
	})
}

func (s *Server) handleSelectLevels(c *gin.Context) {
	var req selectLevelsRequest
	if !bindJSON(c, &req, bindMessages{
		"Levels": {"required": "levels are required", "min": "levels are required"},
	}, "levels must be positive numbers") {
		return
	}
	var questions []db.Question
	if err := s.db.Where("level IN ?", req.Levels).
		Order("level asc, position asc, id asc").
		Find(&questions).Error; err != nil {
		writeServerError(c, "failed to load questions", err)
		return
	}
	pool := make([]trivia.Question, 0, len(questions))
	for _, q := range questions {
		pool = append(pool, q.Trivia())
	}
	s.updateSession(c, func(session *trivia.Session) (*trivia.Answer, error) {
		return nil, session.SelectLevels(req.Levels, pool, s.cfg.QuestionsPerLevel, s.now())
	})
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if !bindJSON(c, &req, bindMessages{
		"QuestionID": {"required": "question_id is required"},
		"Option":     {"required": "option is required"},
	}, "") {
		return
	}
	s.updateSession(c, func(session *trivia.Session) (*trivia.Answer, error) {
		answer, err := session.Answer(req.QuestionID, *req.Option, s.now())
		if err != nil {
			return nil, err
		}
		return &answer, nil
	})
}

func (s *Server) handleNextQuestion(c *gin.Context) {
	s.updateSession(c, func(session *trivia.Session) (*trivia.Answer, error) {
		return nil, session.Next(s.now())
	})
}

func (s *Server) handleResetSession(c *gin.Context) {
	s.updateSession(c, func(session *trivia.Session) (*trivia.Answer, error) {
		session.Reset()
		return nil, nil
	})
}

// updateSession applies one state machine step to the authenticated
// participant's session and persists the result.
func (s *Server) updateSession(c *gin.Context, step func(*trivia.Session) (*trivia.Answer, error)) {
	participant := participantFromContext(c)
	var answer *trivia.Answer
	update, err := s.store.UpdateSession(participant.ID, func(session *trivia.Session) error {
		var err error
		answer, err = step(session)
		return err
	})
	if err != nil {
		if status := storeStatus(err); status != http.StatusInternalServerError {
			writeError(c, status, err.Error())
			return
		}
		status := triviaStatus(err)
		if status == http.StatusInternalServerError {
			writeServerError(c, "failed to update session", err)
			return
		}
		writeError(c, status, err.Error())
		return
	}
	participant = update.Participant
	if participant.Completed && !update.WasCompleted {
		log.Info().Uint("game_id", participant.GameID).Str("participant", participant.Name).Int("score", participant.Score).Msg("session completed")
		s.recordEvent(c, "session_completed", "participant", participant.ID, EventPayload{
			GameID:        participant.GameID,
			Participant:   participant.Name,
			ParticipantID: participant.ID,
			Score:         participant.Score,
		})
	}
	if update.GameCompleted {
		s.recordEvent(c, "game_completed", "game", participant.GameID, EventPayload{
			GameID: participant.GameID,
			Status: db.GameStatusCompleted,
		})
	}
	if update.GameCompleted || participant.Completed != update.WasCompleted || participant.Score != update.PreviousScore {
		s.broadcastGame(participant.GameID)
	}
	c.JSON(http.StatusOK, sessionResponse{
		Session:     update.Session.View(),
		Participant: participantView(*participant),
		Answer:      answer,
	})
}
