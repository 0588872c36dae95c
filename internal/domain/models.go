package domain

import (
	"strings"
	"time"
)

const (
	// DefaultTimerSeconds applies when neither the host nor the quiz picks a duration.
	DefaultTimerSeconds = 30
	// MinQuizTimerSeconds is the smallest default timer a quiz may declare.
	MinQuizTimerSeconds = 5
	// MaxTimerSeconds caps any question timer, host-chosen or quiz default.
	MaxTimerSeconds = 3600

	minAnswers = 2
	maxAnswers = 5
)

// Question models a multiple choice question with exactly one correct answer.
type Question struct {
	Text               string   `json:"questionText" yaml:"questionText" bson:"questionText"`
	Answers            []string `json:"answers" yaml:"answers" bson:"answers"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correctAnswerIndex" bson:"correctAnswerIndex"`
}

// Quiz is tutor-authored content. A session embeds a copy at creation time.
type Quiz struct {
	ID           string     `json:"id" yaml:"id" bson:"_id"`
	TutorID      string     `json:"tutorId,omitempty" yaml:"tutorId" bson:"tutorId,omitempty"`
	Title        string     `json:"title" yaml:"title" bson:"title"`
	Questions    []Question `json:"questions" yaml:"questions" bson:"questions"`
	DefaultTimer int        `json:"defaultTimer,omitempty" yaml:"defaultTimer" bson:"defaultTimer,omitempty"`
}

// Validate checks the content invariants every quiz must hold before it can be played.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return wrapInvalid("quiz has no questions")
	}
	if q.DefaultTimer != 0 && q.DefaultTimer < MinQuizTimerSeconds {
		return wrapInvalid("default timer below minimum")
	}
	if q.DefaultTimer > MaxTimerSeconds {
		return wrapInvalid("default timer above maximum")
	}
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return wrapInvalid("question text is empty")
	}
	if len(q.Answers) < minAnswers || len(q.Answers) > maxAnswers {
		return wrapInvalid("question needs 2 to 5 answers")
	}
	for _, answer := range q.Answers {
		if strings.TrimSpace(answer) == "" {
			return wrapInvalid("answer text is empty")
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Answers) {
		return wrapInvalid("correct answer index out of range")
	}
	return nil
}

// TimerOrDefault returns the quiz default timer, falling back to DefaultTimerSeconds.
func (q Quiz) TimerOrDefault() int {
	if q.DefaultTimer > 0 {
		return q.DefaultTimer
	}
	return DefaultTimerSeconds
}

// Clone returns a deep copy so a session never shares slices with the quiz cache.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Answers = append([]string(nil), question.Answers...)
		out.Questions[i] = question
	}
	return out
}

// Participant represents a student on a session roster.
type Participant struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// AnswerRecord is the server-side trace of one accepted submission.
type AnswerRecord struct {
	PlayerID            string `json:"playerId"`
	QuestionIndex       int    `json:"questionIndex"`
	SelectedAnswerIndex int    `json:"selectedAnswerIndex"`
	Correct             bool   `json:"correct"`
	Awarded             int    `json:"awarded"`
}

// ScoreDelta is the outcome of a single answer submission.
type ScoreDelta struct {
	PlayerID      string `json:"playerId"`
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	TotalScore    int    `json:"totalScore"`
	// Recorded is false when the score transaction failed and the delta was not persisted.
	Recorded bool `json:"recorded"`
}
