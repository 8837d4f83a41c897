// Package trivia tracks a single guest's progress through a quiz: the guest
// picks levels, answers the questions of those levels in order, and the
// session completes after the last one.
package trivia

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
)

type Status string

const (
	StatusSelectingLevels Status = "selecting_levels"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNoLevels          = errors.New("at least one level is required")
	ErrNoQuestions       = errors.New("no questions for the selected levels")
	ErrWrongQuestion     = errors.New("question is not the current question")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrInvalidOption     = errors.New("invalid answer option")
	ErrNotAnswered       = errors.New("current question has not been answered")
)

type Question struct {
	ID           uint     `json:"id"`
	Level        int      `json:"level"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Points       int      `json:"points"`
}

type Answer struct {
	QuestionID  uint      `json:"question_id"`
	OptionIndex int       `json:"option_index"`
	Correct     bool      `json:"correct"`
	Points      int       `json:"points"`
	AnsweredAt  time.Time `json:"answered_at"`
}

// Session is the persisted state. Questions are copied in when levels are
// selected so later edits to the question bank do not shift a running quiz.
type Session struct {
	Status      Status     `json:"status"`
	Levels      []int      `json:"levels"`
	Questions   []Question `json:"questions"`
	Index       int        `json:"index"`
	Answers     []Answer   `json:"answers"`
	Score       int        `json:"score"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func NewSession() *Session {
	return &Session{Status: StatusSelectingLevels}
}

// Decode restores a session; empty input yields a fresh session.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 || string(data) == "null" {
		return NewSession(), nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Status == "" {
		s.Status = StatusSelectingLevels
	}
	return &s, nil
}

func (s *Session) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// SelectLevels picks the questions for the given levels out of pool. When
// perLevel is positive at most that many questions are kept per level.
func (s *Session) SelectLevels(levels []int, pool []Question, perLevel int, now time.Time) error {
	if s.Status != StatusSelectingLevels {
		return ErrInvalidTransition
	}
	levels = normalizeLevels(levels)
	if len(levels) == 0 {
		return ErrNoLevels
	}
	wanted := make(map[int]struct{}, len(levels))
	for _, level := range levels {
		wanted[level] = struct{}{}
	}
	picked := make([]Question, 0, len(pool))
	perLevelCount := make(map[int]int)
	for _, q := range pool {
		if _, ok := wanted[q.Level]; !ok {
			continue
		}
		if perLevel > 0 && perLevelCount[q.Level] >= perLevel {
			continue
		}
		perLevelCount[q.Level]++
		if q.Points <= 0 {
			q.Points = 1
		}
		picked = append(picked, q)
	}
	if len(picked) == 0 {
		return ErrNoQuestions
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Level < picked[j].Level
	})

	started := now.UTC()
	s.Status = StatusInProgress
	s.Levels = levels
	s.Questions = picked
	s.Index = 0
	s.Answers = nil
	s.Score = 0
	s.StartedAt = &started
	s.CompletedAt = nil
	return nil
}

func (s *Session) Current() (Question, bool) {
	if s.Status != StatusInProgress || s.Index < 0 || s.Index >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Index], true
}

func (s *Session) Answer(questionID uint, option int, now time.Time) (Answer, error) {
	if s.Status != StatusInProgress {
		return Answer{}, ErrInvalidTransition
	}
	current, ok := s.Current()
	if !ok {
		return Answer{}, ErrInvalidTransition
	}
	if current.ID != questionID {
		return Answer{}, ErrWrongQuestion
	}
	if s.answered(current.ID) {
		return Answer{}, ErrAlreadyAnswered
	}
	if option < 0 || option >= len(current.Options) {
		return Answer{}, ErrInvalidOption
	}
	answer := Answer{
		QuestionID:  current.ID,
		OptionIndex: option,
		Correct:     option == current.CorrectIndex,
		AnsweredAt:  now.UTC(),
	}
	if answer.Correct {
		answer.Points = current.Points
		s.Score += current.Points
	}
	s.Answers = append(s.Answers, answer)
	return answer, nil
}

// Next moves past an answered question. Moving past the last question
// completes the session.
func (s *Session) Next(now time.Time) error {
	if s.Status != StatusInProgress {
		return ErrInvalidTransition
	}
	current, ok := s.Current()
	if !ok {
		return ErrInvalidTransition
	}
	if !s.answered(current.ID) {
		return ErrNotAnswered
	}
	s.Index++
	if s.Index >= len(s.Questions) {
		s.complete(now)
	}
	return nil
}

func (s *Session) Reset() {
	*s = Session{Status: StatusSelectingLevels}
}

func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

func (s *Session) Progress() (answered, total int) {
	return len(s.Answers), len(s.Questions)
}

func (s *Session) MaxScore() int {
	total := 0
	for _, q := range s.Questions {
		total += q.Points
	}
	return total
}

func (s *Session) complete(now time.Time) {
	done := now.UTC()
	s.Status = StatusCompleted
	s.Index = len(s.Questions)
	s.CompletedAt = &done
}

func (s *Session) answered(questionID uint) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

func (s *Session) answerFor(questionID uint) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

func normalizeLevels(levels []int) []int {
	seen := make(map[int]struct{}, len(levels))
	out := make([]int, 0, len(levels))
	for _, level := range levels {
		if level <= 0 {
			continue
		}
		if _, ok := seen[level]; ok {
			continue
		}
		seen[level] = struct{}{}
		out = append(out, level)
	}
	sort.Ints(out)
	return out
}
