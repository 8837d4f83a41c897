package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RowError describes a CSV row that was skipped. Row is 1-based and counts
// the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped"`
}

var ErrMissingColumns = errors.New("csv must have level, question, answer and at least two option columns")

// Column limits shared with the admin question form.
const (
	MaxQuestionLength = 280
	MaxOptionLength   = 140
	MaxOptions        = 6
	MaxCategoryLength = 64
)

// ImportQuestionsCSV upserts questions from CSV. The header names the
// columns: level, question, answer, optional points and category, and any
// number of columns starting with "option". The answer is either a letter
// (A for the first option) or the exact option text.
func ImportQuestionsCSV(conn *gorm.DB, r io.Reader) (ImportResult, error) {
	result := ImportResult{Skipped: []RowError{}}
	if conn == nil {
		return result, errors.New("db connection is nil")
	}
	questions, skipped, err := ParseQuestionsCSV(r)
	if err != nil {
		return result, err
	}
	result.Skipped = skipped
	err = conn.Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "level"}, {Name: "text"}},
				DoUpdates: clause.AssignmentColumns([]string{"options", "correct_index", "points", "category", "updated_at"}),
			}).Create(&questions[i]).Error
			if err != nil {
				return fmt.Errorf("save question %q: %w", questions[i].Text, err)
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Imported = len(questions)
	return result, nil
}

func ParseQuestionsCSV(r io.Reader) ([]Question, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrMissingColumns
	}

	cols := map[string]int{}
	var optionCols []int
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if strings.HasPrefix(key, "option") {
			optionCols = append(optionCols, i)
			continue
		}
		cols[key] = i
	}
	levelCol, okLevel := cols["level"]
	textCol, okText := cols["question"]
	answerCol, okAnswer := cols["answer"]
	if !okLevel || !okText || !okAnswer || len(optionCols) < 2 {
		return nil, nil, ErrMissingColumns
	}
	pointsCol, hasPoints := cols["points"]
	categoryCol, hasCategory := cols["category"]

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var questions []Question
	var skipped []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		text := cell(row, textCol)
		if text == "" {
			skipped = append(skipped, RowError{Row: rowNum, Message: "question is required"})
			continue
		}
		level, err := strconv.Atoi(cell(row, levelCol))
		if err != nil || level <= 0 {
			skipped = append(skipped, RowError{Row: rowNum, Message: "level must be a positive number"})
			continue
		}
		if len(text) > MaxQuestionLength {
			skipped = append(skipped, RowError{Row: rowNum, Message: fmt.Sprintf("question must be %d characters or fewer", MaxQuestionLength)})
			continue
		}
		cells := make([]string, len(optionCols))
		var options []string
		tooLong := false
		for j, idx := range optionCols {
			cells[j] = cell(row, idx)
			if cells[j] == "" {
				continue
			}
			if len(cells[j]) > MaxOptionLength {
				tooLong = true
			}
			options = append(options, cells[j])
		}
		if tooLong {
			skipped = append(skipped, RowError{Row: rowNum, Message: fmt.Sprintf("options must be %d characters or fewer", MaxOptionLength)})
			continue
		}
		if len(options) < 2 {
			skipped = append(skipped, RowError{Row: rowNum, Message: "at least two options are required"})
			continue
		}
		if len(options) > MaxOptions {
			skipped = append(skipped, RowError{Row: rowNum, Message: fmt.Sprintf("at most %d options are allowed", MaxOptions)})
			continue
		}
		correct, msg := resolveAnswer(cell(row, answerCol), cells, options)
		if msg != "" {
			skipped = append(skipped, RowError{Row: rowNum, Message: msg})
			continue
		}
		points := 1
		if hasPoints {
			if raw := cell(row, pointsCol); raw != "" {
				value, err := strconv.Atoi(raw)
				if err != nil || value <= 0 {
					skipped = append(skipped, RowError{Row: rowNum, Message: "points must be a positive number"})
					continue
				}
				points = value
			}
		}
		q := Question{
			Level:        level,
			Text:         text,
			Options:      options,
			CorrectIndex: correct,
			Points:       points,
			Position:     i,
		}
		if hasCategory {
			q.Category = cell(row, categoryCol)
			if len(q.Category) > MaxCategoryLength {
				skipped = append(skipped, RowError{Row: rowNum, Message: fmt.Sprintf("category must be %d characters or fewer", MaxCategoryLength)})
				continue
			}
		}
		questions = append(questions, q)
	}
	return questions, skipped, nil
}

// resolveAnswer maps a letter onto the option column it names (A is the
// first option column, blank or not) and otherwise matches option text.
// It returns the index into the non-blank options, or a row message.
func resolveAnswer(answer string, cells, options []string) (int, string) {
	if answer == "" {
		return 0, "answer is required"
	}
	if len(answer) == 1 {
		letter := strings.ToUpper(answer)[0]
		if letter >= 'A' && int(letter-'A') < len(cells) {
			col := int(letter - 'A')
			if cells[col] == "" {
				return 0, fmt.Sprintf("answer %c names an empty option", letter)
			}
			index := 0
			for _, c := range cells[:col] {
				if c != "" {
					index++
				}
			}
			return index, ""
		}
	}
	for i, opt := range options {
		if strings.EqualFold(opt, answer) {
			return i, ""
		}
	}
	return 0, "answer does not match an option"
}
