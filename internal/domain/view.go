package domain

import "time"

// QuestionView is a question as shown to a viewer. CorrectAnswerIndex is nil while hidden.
type QuestionView struct {
	Index              int      `json:"index"`
	Text               string   `json:"questionText"`
	Answers            []string `json:"answers"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	MaxPoints          int      `json:"maxPoints"`
}

// SessionView is what a host or student view renders after every document change.
type SessionView struct {
	SessionID            string        `json:"sessionId"`
	Title                string        `json:"title"`
	Status               Status        `json:"status"`
	SecretCode           string        `json:"secretCode,omitempty"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	QuestionCount        int           `json:"questionCount"`
	Timer                int           `json:"timer"`
	QuestionStartTime    time.Time     `json:"questionStartTime"`
	Remaining            int           `json:"remaining"`
	Question             *QuestionView `json:"question,omitempty"`
	MyAnswer             *int          `json:"myAnswer,omitempty"`
	Scoreboard           Scoreboard    `json:"scoreboard"`
	// Podium is the top three, set once the session is finished.
	Podium []ScoreboardEntry `json:"podium,omitempty"`
}

// HostView renders the session for its creator, answer key included.
func HostView(s Session, now time.Time) SessionView {
	view := baseView(s, now, "")
	view.SecretCode = s.SecretCode
	if q, ok := s.CurrentQuestion(); ok {
		view.Question = questionView(s.CurrentQuestionIndex, q, s.Timer, true)
	}
	return view
}

// PlayerView renders the session for one student. The correct answer of the open question
// is revealed only once that student has answered it.
func PlayerView(s Session, playerID string, now time.Time) SessionView {
	view := baseView(s, now, playerID)
	q, ok := s.CurrentQuestion()
	if !ok {
		return view
	}
	record, answered := s.AnswerFor(playerID, s.CurrentQuestionIndex)
	view.Question = questionView(s.CurrentQuestionIndex, q, s.Timer, answered)
	if answered {
		selected := record.SelectedAnswerIndex
		view.MyAnswer = &selected
	}
	return view
}

func baseView(s Session, now time.Time, playerID string) SessionView {
	view := SessionView{
		SessionID:            s.ID,
		Title:                s.QuizData.Title,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		QuestionCount:        s.QuestionCount(),
		Timer:                s.Timer,
		QuestionStartTime:    s.QuestionStartTime,
		Remaining:            s.RemainingFor(now),
		Scoreboard:           ProjectScoreboard(s, playerID),
	}
	if s.Status == StatusFinished {
		view.Podium = view.Scoreboard.Podium()
	}
	return view
}

func questionView(index int, q Question, timer int, reveal bool) *QuestionView {
	view := &QuestionView{
		Index:     index,
		Text:      q.Text,
		Answers:   append([]string(nil), q.Answers...),
		MaxPoints: MaxScore(timer),
	}
	if reveal {
		correct := q.CorrectAnswerIndex
		view.CorrectAnswerIndex = &correct
	}
	return view
}

// ReviewItem is one question of a finished session's answer review.
type ReviewItem struct {
	Index               int      `json:"index"`
	Text                string   `json:"questionText"`
	Answers             []string `json:"answers"`
	CorrectAnswerIndex  int      `json:"correctAnswerIndex"`
	SelectedAnswerIndex *int     `json:"selectedAnswerIndex,omitempty"`
	Correct             bool     `json:"correct"`
	Awarded             int      `json:"awarded"`
}

// Review lists every question with the player's recorded choice. Only finished sessions
// can be reviewed.
func Review(s Session, playerID string) ([]ReviewItem, error) {
	if s.Status != StatusFinished {
		return nil, ErrNotFinished
	}
	if _, ok := s.Participant(playerID); !ok {
		return nil, ErrParticipantNotFound
	}
	items := make([]ReviewItem, 0, s.QuestionCount())
	for i, q := range s.QuizData.Questions {
		item := ReviewItem{
			Index:              i,
			Text:               q.Text,
			Answers:            append([]string(nil), q.Answers...),
			CorrectAnswerIndex: q.CorrectAnswerIndex,
		}
		if record, ok := s.AnswerFor(playerID, i); ok {
			selected := record.SelectedAnswerIndex
			item.SelectedAnswerIndex = &selected
			item.Correct = record.Correct
			item.Awarded = record.Awarded
		}
		items = append(items, item)
	}
	return items, nil
}
