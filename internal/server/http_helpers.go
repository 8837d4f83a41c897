package server

import (
	"errors"
	"net/http"

	"hill-valley/internal/access"
	"hill-valley/internal/trivia"
	"hill-valley/internal/voting"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func writeServerError(c *gin.Context, message string, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	writeError(c, http.StatusInternalServerError, message)
}

// triviaStatus maps session state machine errors onto HTTP statuses.
func triviaStatus(err error) int {
	switch {
	case errors.Is(err, trivia.ErrNoLevels), errors.Is(err, trivia.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, trivia.ErrNoQuestions),
		errors.Is(err, trivia.ErrInvalidTransition),
		errors.Is(err, trivia.ErrWrongQuestion),
		errors.Is(err, trivia.ErrAlreadyAnswered),
		errors.Is(err, trivia.ErrNotAnswered):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, ErrGameNotFound), errors.Is(err, ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGameFull), errors.Is(err, ErrGameClosed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func accessStatus(err error) int {
	switch {
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrInactive),
		errors.Is(err, access.ErrWrongPurpose),
		errors.Is(err, access.ErrExpired),
		errors.Is(err, access.ErrExhausted):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func windowStatus(err error) int {
	if errors.Is(err, voting.ErrInvalidWindow) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
