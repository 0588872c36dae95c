package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a live session.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// NotStarted is the question index of a session that has not been advanced yet.
const NotStarted = -1

// Session is the shared live-session document every participant observes.
type Session struct {
	ID                   string         `json:"id"`
	HostID               string         `json:"hostId"`
	QuizData             Quiz           `json:"quizData"`
	SecretCode           string         `json:"secretCode"`
	Status               Status         `json:"status"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Timer                int            `json:"timer"`
	QuestionStartTime    time.Time      `json:"questionStartTime"`
	Participants         []Participant  `json:"participants"`
	Answers              []AnswerRecord `json:"answers"`
	CreatedAt            time.Time      `json:"createdAt"`
	FinishedAt           time.Time      `json:"finishedAt,omitempty"`
}

// NewSession builds a waiting session around a snapshot of quiz.
func NewSession(id, hostID, secretCode string, quiz Quiz, now time.Time) Session {
	return Session{
		ID:                   id,
		HostID:               hostID,
		QuizData:             quiz.Clone(),
		SecretCode:           secretCode,
		Status:               StatusWaiting,
		CurrentQuestionIndex: NotStarted,
		Participants:         []Participant{},
		Answers:              []AnswerRecord{},
		CreatedAt:            now,
	}
}

// IsHost reports whether callerID created the session. Every transition requires it.
func (s *Session) IsHost(callerID string) bool {
	return callerID != "" && callerID == s.HostID
}

// QuestionCount returns the number of questions in the embedded quiz.
func (s *Session) QuestionCount() int {
	return len(s.QuizData.Questions)
}

// CurrentQuestion returns the open question, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.Status != StatusActive {
		return Question{}, false
	}
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= s.QuestionCount() {
		return Question{}, false
	}
	return s.QuizData.Questions[s.CurrentQuestionIndex], true
}

// Advance opens the next question or finishes the session when none remain.
// timerSeconds of zero selects the quiz default; values above MaxTimerSeconds are rejected.
// The index always moves by exactly one.
func (s *Session) Advance(timerSeconds int, now time.Time) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	if timerSeconds < 0 || timerSeconds > MaxTimerSeconds {
		return ErrInvalidTimer
	}

	next := s.CurrentQuestionIndex + 1
	if next >= s.QuestionCount() {
		s.finish(now)
		return nil
	}
	if timerSeconds == 0 {
		timerSeconds = s.QuizData.TimerOrDefault()
	}

	s.CurrentQuestionIndex = next
	s.Status = StatusActive
	s.Timer = timerSeconds
	s.QuestionStartTime = now
	return nil
}

// End finishes the session from any non-terminal state, freezing index and timer.
func (s *Session) End(now time.Time) error {
	if s.Status == StatusFinished {
		return ErrSessionFinished
	}
	s.finish(now)
	return nil
}

func (s *Session) finish(now time.Time) {
	s.Status = StatusFinished
	s.FinishedAt = now
}

// AddParticipant merges p into the roster by playerId. Membership only grows while waiting.
// Re-adding an existing playerId is a no-op so a retried join never duplicates a player.
func (s *Session) AddParticipant(p Participant) error {
	if s.Status != StatusWaiting {
		return ErrNotJoinable
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if s.participantIndex(p.PlayerID) >= 0 {
		return nil
	}
	p.Score = 0
	s.Participants = append(s.Participants, p)
	return nil
}

// Participant looks up a roster entry by player id.
func (s *Session) Participant(playerID string) (Participant, bool) {
	if i := s.participantIndex(playerID); i >= 0 {
		return s.Participants[i], true
	}
	return Participant{}, false
}

func (s *Session) participantIndex(playerID string) int {
	for i := range s.Participants {
		if s.Participants[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the document.
func (s Session) Clone() Session {
	out := s
	out.QuizData = s.QuizData.Clone()
	out.Participants = append(make([]Participant, 0, len(s.Participants)), s.Participants...)
	out.Answers = append(make([]AnswerRecord, 0, len(s.Answers)), s.Answers...)
	return out
}
