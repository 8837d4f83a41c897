package trivia

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(1985, 10, 26, 1, 21, 0, 0, time.UTC)

func testPool() []Question {
	return []Question{
		{ID: 1, Level: 2, Text: "What year does Marty travel to?", Options: []string{"1955", "1965"}, CorrectIndex: 0},
		{ID: 2, Level: 1, Text: "How many gigawatts?", Options: []string{"1.21", "12.1"}, CorrectIndex: 0, Points: 2},
		{ID: 3, Level: 1, Text: "What speed is needed?", Options: []string{"77 mph", "88 mph"}, CorrectIndex: 1},
		{ID: 4, Level: 3, Text: "Who is Biff's grandmother?", Options: []string{"Gertrude", "Lorraine"}, CorrectIndex: 0},
	}
}

func TestSelectLevelsOrdersByLevel(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels([]int{2, 1, 2, 0}, testPool(), 0, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}
	if s.Status != StatusInProgress {
		t.Fatalf("expected in progress, got %s", s.Status)
	}
	if len(s.Levels) != 2 || s.Levels[0] != 1 || s.Levels[1] != 2 {
		t.Fatalf("unexpected levels %#v", s.Levels)
	}
	ids := []uint{}
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	want := []uint{2, 3, 1}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
	if s.Questions[2].Points != 1 {
		t.Fatalf("expected default points of 1, got %d", s.Questions[2].Points)
	}
}

func TestSelectLevelsCapsPerLevel(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels([]int{1}, testPool(), 1, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}
	if len(s.Questions) != 1 || s.Questions[0].ID != 2 {
		t.Fatalf("expected first level-1 question only, got %#v", s.Questions)
	}
}

func TestSelectLevelsErrors(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels(nil, testPool(), 0, testNow); !errors.Is(err, ErrNoLevels) {
		t.Fatalf("expected ErrNoLevels, got %v", err)
	}
	if err := s.SelectLevels([]int{9}, testPool(), 0, testNow); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if err := s.SelectLevels([]int{1}, testPool(), 0, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}
	if err := s.SelectLevels([]int{1}, testPool(), 0, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFullSessionFlow(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels([]int{1}, testPool(), 0, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}

	if err := s.Next(testNow); !errors.Is(err, ErrNotAnswered) {
		t.Fatalf("expected ErrNotAnswered, got %v", err)
	}
	if _, err := s.Answer(3, 1, testNow); !errors.Is(err, ErrWrongQuestion) {
		t.Fatalf("expected ErrWrongQuestion, got %v", err)
	}
	if _, err := s.Answer(2, 5, testNow); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}

	answer, err := s.Answer(2, 0, testNow)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !answer.Correct || answer.Points != 2 {
		t.Fatalf("expected correct answer worth 2, got %#v", answer)
	}
	if _, err := s.Answer(2, 0, testNow); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if err := s.Next(testNow); err != nil {
		t.Fatalf("next: %v", err)
	}

	answer, err = s.Answer(3, 0, testNow)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Correct {
		t.Fatalf("expected wrong answer")
	}
	if err := s.Next(testNow); err != nil {
		t.Fatalf("next: %v", err)
	}

	if !s.Completed() {
		t.Fatalf("expected completed session, got %s", s.Status)
	}
	if s.Score != 2 || s.MaxScore() != 3 {
		t.Fatalf("expected score 2/3, got %d/%d", s.Score, s.MaxScore())
	}
	if s.CompletedAt == nil {
		t.Fatalf("expected completion time")
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("expected no current question after completion")
	}
	if err := s.Next(testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	s.Reset()
	if s.Status != StatusSelectingLevels || s.Score != 0 || len(s.Questions) != 0 {
		t.Fatalf("expected reset session, got %#v", s)
	}
}

func TestViewHidesCorrectAnswerUntilAnswered(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels([]int{1}, testPool(), 0, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}
	view := s.View()
	if view.Current == nil || view.Current.CorrectIndex != nil {
		t.Fatalf("expected hidden correct index, got %#v", view.Current)
	}
	if _, err := s.Answer(2, 1, testNow); err != nil {
		t.Fatalf("answer: %v", err)
	}
	view = s.View()
	if view.Current.CorrectIndex == nil || *view.Current.CorrectIndex != 0 {
		t.Fatalf("expected revealed correct index, got %#v", view.Current)
	}
	if view.Current.Correct == nil || *view.Current.Correct {
		t.Fatalf("expected incorrect flag, got %#v", view.Current.Correct)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := NewSession()
	if err := s.SelectLevels([]int{1, 3}, testPool(), 0, testNow); err != nil {
		t.Fatalf("select levels: %v", err)
	}
	if _, err := s.Answer(2, 0, testNow); err != nil {
		t.Fatalf("answer: %v", err)
	}
	data, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if restored.Score != 2 || len(restored.Questions) != 3 || len(restored.Answers) != 1 {
		t.Fatalf("unexpected restored session %#v", restored)
	}

	fresh, err := Decode(nil)
	if err != nil || fresh.Status != StatusSelectingLevels {
		t.Fatalf("expected fresh session, got %#v err=%v", fresh, err)
	}
}
