package trivia

// QuestionView is a question as shown to a guest. The correct option is
// only revealed once the guest has answered.
type QuestionView struct {
	ID           uint     `json:"id"`
	Level        int      `json:"level"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
	Answered     bool     `json:"answered"`
	Selected     *int     `json:"selected,omitempty"`
	Correct      *bool    `json:"correct,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
}

type SessionView struct {
	Status   Status        `json:"status"`
	Levels   []int         `json:"levels"`
	Index    int           `json:"index"`
	Answered int           `json:"answered"`
	Total    int           `json:"total"`
	Score    int           `json:"score"`
	MaxScore int           `json:"max_score"`
	Current  *QuestionView `json:"current,omitempty"`
}

func (s *Session) View() SessionView {
	answered, total := s.Progress()
	view := SessionView{
		Status:   s.Status,
		Levels:   append([]int(nil), s.Levels...),
		Index:    s.Index,
		Answered: answered,
		Total:    total,
		Score:    s.Score,
		MaxScore: s.MaxScore(),
	}
	if q, ok := s.Current(); ok {
		qv := QuestionView{
			ID:      q.ID,
			Level:   q.Level,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		}
		if a, ok := s.answerFor(q.ID); ok {
			selected := a.OptionIndex
			correct := a.Correct
			correctIndex := q.CorrectIndex
			qv.Answered = true
			qv.Selected = &selected
			qv.Correct = &correct
			qv.CorrectIndex = &correctIndex
		}
		view.Current = &qv
	}
	return view
}
