package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"hill-valley/internal/db"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength        = 40
	maxTitleLength       = 120
	maxMessageLength     = 280
	maxQuestionLength    = db.MaxQuestionLength
	maxOptionLength      = db.MaxOptionLength
	maxCategoryLength    = db.MaxCategoryLength
	maxDescriptionLength = 1000
	maxOptions           = db.MaxOptions
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("title", func(fl validator.FieldLevel) bool {
			_, err := validateTitle(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, err := validateCategory(fl.Field().String())
			return err == nil
		})
	})
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateTitle(text string) (string, error) {
	return validateText("title", text, maxTitleLength)
}

func validateMessage(text string) (string, error) {
	trimmed := normalizeText(text)
	if len(trimmed) > maxMessageLength {
		return "", fmt.Errorf("message must be %d characters or fewer", maxMessageLength)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("message contains unsupported characters")
	}
	return trimmed, nil
}

func validateQuestion(text string, options []string, correct int) (string, []string, error) {
	clean, err := validateText("question", text, maxQuestionLength)
	if err != nil {
		return "", nil, err
	}
	if len(options) < 2 {
		return "", nil, errors.New("at least two options are required")
	}
	if len(options) > maxOptions {
		return "", nil, fmt.Errorf("at most %d options are allowed", maxOptions)
	}
	cleanOptions := make([]string, 0, len(options))
	for _, option := range options {
		value, err := validateText("option", option, maxOptionLength)
		if err != nil {
			return "", nil, err
		}
		cleanOptions = append(cleanOptions, value)
	}
	if correct < 0 || correct >= len(cleanOptions) {
		return "", nil, errors.New("correct_index must point at an option")
	}
	return clean, cleanOptions, nil
}

func validateCategory(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxCategoryLength {
		return "", fmt.Errorf("category must be %d characters or fewer", maxCategoryLength)
	}
	for _, r := range trimmed {
		if r > 127 {
			return "", errors.New("category contains unsupported characters")
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ' ' {
			continue
		}
		return "", errors.New("category contains unsupported characters")
	}
	return trimmed, nil
}

func validateDescription(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxDescriptionLength {
		return "", fmt.Errorf("description must be %d characters or fewer", maxDescriptionLength)
	}
	return trimmed, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// isSafeText allows letters in any script, digits and common punctuation.
func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/', '#', '%', '+', '$', '*', '@':
			continue
		default:
			return false
		}
	}
	return true
}
