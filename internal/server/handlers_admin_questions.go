package server

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxImportBytes = 2 << 20

type questionRequest struct {
	Level        int      `json:"level" binding:"required,min=1"`
	Text         string   `json:"text" binding:"required"`
	Options      []string `json:"options" binding:"required"`
	CorrectIndex int      `json:"correct_index" binding:"min=0"`
	Points       int      `json:"points" binding:"min=0"`
	Category     string   `json:"category" binding:"category"`
	Position     int      `json:"position"`
}

var questionMessages = bindMessages{
	"Level":        {"required": "level is required", "min": "level must be at least 1"},
	"Text":         {"required": "question text is required"},
	"Options":      {"required": "options are required"},
	"CorrectIndex": {"min": "correct_index must point at an option"},
	"Points":       {"min": "points cannot be negative"},
	"Category":     {"category": "category may only contain letters, digits, spaces, dashes and underscores"},
}

func (req questionRequest) model() (db.Question, error) {
	text, options, err := validateQuestion(req.Text, req.Options, req.CorrectIndex)
	if err != nil {
		return db.Question{}, err
	}
	category, err := validateCategory(req.Category)
	if err != nil {
		return db.Question{}, err
	}
	points := req.Points
	if points == 0 {
		points = 1
	}
	return db.Question{
		Level:        req.Level,
		Text:         text,
		Options:      options,
		CorrectIndex: req.CorrectIndex,
		Points:       points,
		Category:     category,
		Position:     req.Position,
	}, nil
}

func (s *Server) handleAdminListQuestions(c *gin.Context) {
	page, perPage := parsePagination(c, adminPerPage, adminMaxPerPage)
	query := s.db.Model(&db.Question{})
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level <= 0 {
			writeError(c, http.StatusBadRequest, "level must be a positive number")
			return
		}
		query = query.Where("level = ?", level)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		query = query.Where("LOWER(text) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServerError(c, "failed to count questions", err)
		return
	}
	questions := make([]db.Question, 0)
	if err := query.Order("level asc, position asc, id asc").Limit(perPage).Offset(pageOffset(page, perPage)).Find(&questions).Error; err != nil {
		writeServerError(c, "failed to load questions", err)
		return
	}
	views := make([]QuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, questionView(question))
	}
	c.JSON(http.StatusOK, gin.H{
		"questions":  views,
		"pagination": buildPaginationData("/api/admin/questions", page, perPage, total),
	})
}

func (s *Server) handleAdminCreateQuestion(c *gin.Context) {
	var req questionRequest
	if !bindJSON(c, &req, questionMessages, "") {
		return
	}
	question, err := req.model()
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.db.Create(&question).Error; err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "a question with that text already exists for this level")
			return
		}
		writeServerError(c, "failed to save question", err)
		return
	}
	s.recordEvent(c, "question_created", "question", question.ID, EventPayload{Name: question.Text})
	c.JSON(http.StatusCreated, questionView(question))
}

func (s *Server) handleAdminUpdateQuestion(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "question not found")
		return
	}
	var req questionRequest
	if !bindJSON(c, &req, questionMessages, "") {
		return
	}
	update, err := req.model()
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	var question db.Question
	if err := s.db.First(&question, id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "question not found")
			return
		}
		writeServerError(c, "failed to load question", err)
		return
	}
	if err := s.db.Model(&question).Updates(map[string]any{
		"level":         update.Level,
		"text":          update.Text,
		"options":       update.Options,
		"correct_index": update.CorrectIndex,
		"points":        update.Points,
		"category":      update.Category,
		"position":      update.Position,
	}).Error; err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "a question with that text already exists for this level")
			return
		}
		writeServerError(c, "failed to update question", err)
		return
	}
	if err := s.db.First(&question, id).Error; err != nil {
		writeServerError(c, "failed to reload question", err)
		return
	}
	s.recordEvent(c, "question_updated", "question", id, EventPayload{Name: question.Text})
	c.JSON(http.StatusOK, questionView(question))
}

func (s *Server) handleAdminDeleteQuestion(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "question not found")
		return
	}
	result := s.db.Delete(&db.Question{}, id)
	if result.Error != nil {
		writeServerError(c, "failed to delete question", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		writeError(c, http.StatusNotFound, "question not found")
		return
	}
	s.recordEvent(c, "question_deleted", "question", id, EventPayload{})
	c.Status(http.StatusNoContent)
}

// handleAdminImportQuestions accepts a CSV either as the "file" field of a
// multipart form or as the raw request body.
func (s *Server) handleAdminImportQuestions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	var source io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				writeError(c, http.StatusRequestEntityTooLarge, "csv file is too large")
				return
			}
			writeError(c, http.StatusBadRequest, "csv file is required")
			return
		}
		file, err := header.Open()
		if err != nil {
			writeServerError(c, "failed to read upload", err)
			return
		}
		defer file.Close()
		source = file
	}
	result, err := db.ImportQuestionsCSV(s.db, source)
	if err != nil {
		var parseErr *csv.ParseError
		switch {
		case errors.Is(err, db.ErrMissingColumns), errors.As(err, &parseErr):
			writeError(c, http.StatusBadRequest, err.Error())
		case isTooLarge(err):
			writeError(c, http.StatusRequestEntityTooLarge, "csv file is too large")
		default:
			writeServerError(c, "failed to import questions", err)
		}
		return
	}
	log.Info().Int("imported", result.Imported).Int("skipped", len(result.Skipped)).Msg("questions imported")
	s.recordEvent(c, "questions_imported", "question", "", EventPayload{Count: result.Imported})
	c.JSON(http.StatusOK, result)
}
