package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultCodeAttempts = 5

// SessionService contains the live-session use cases.
type SessionService struct {
	sessions     SessionStore
	quizzes      QuizRepository
	archiver     Archiver
	log          zerolog.Logger
	now          func() time.Time
	newID        func() string
	newCode      func() string
	codeAttempts int
	defaultTimer int
}

// Option customizes a SessionService.
type Option func(*SessionService)

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *SessionService) { s.log = log }
}

// WithArchiver stores finished sessions through a.
func WithArchiver(a Archiver) Option {
	return func(s *SessionService) { s.archiver = a }
}

// WithClock is mostly useful in tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// WithCodeGenerator replaces RandomCode.
func WithCodeGenerator(gen func() string) Option {
	return func(s *SessionService) { s.newCode = gen }
}

// WithCodeAttempts bounds how many codes are tried before session creation gives up.
func WithCodeAttempts(n int) Option {
	return func(s *SessionService) {
		if n > 0 {
			s.codeAttempts = n
		}
	}
}

// WithDefaultTimer sets the timer for quizzes that do not declare one. Positive values are
// clamped to the range a quiz default may take.
func WithDefaultTimer(seconds int) Option {
	return func(s *SessionService) {
		if seconds <= 0 {
			return
		}
		if seconds < domain.MinQuizTimerSeconds {
			seconds = domain.MinQuizTimerSeconds
		}
		if seconds > domain.MaxTimerSeconds {
			seconds = domain.MaxTimerSeconds
		}
		s.defaultTimer = seconds
	}
}

func NewSessionService(store SessionStore, quizzes QuizRepository, opts ...Option) *SessionService {
	s := &SessionService{
		sessions:     store,
		quizzes:      quizzes,
		log:          zerolog.Nop(),
		now:          time.Now,
		newID:        uuid.NewString,
		newCode:      RandomCode,
		codeAttempts: defaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now exposes the service clock so views resolve timers against the same source.
func (s *SessionService) Now() time.Time {
	return s.now()
}

// CreateSession snapshots a quiz into a new waiting session owned by hostID.
func (s *SessionService) CreateSession(ctx context.Context, hostID, quizID string) (domain.Session, error) {
	if hostID == "" {
		return domain.Session{}, domain.ErrNotHost
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if quiz.DefaultTimer == 0 {
		quiz.DefaultTimer = s.defaultTimer
	}
	if err := quiz.Validate(); err != nil {
		return domain.Session{}, err
	}

	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		session := domain.NewSession(s.newID(), hostID, s.newCode(), quiz, s.now())
		err := s.sessions.Create(ctx, session)
		if err == nil {
			s.log.Info().Str("session", session.ID).Str("quiz", quizID).Str("host", hostID).Msg("session created")
			return session, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return domain.Session{}, err
		}
		s.log.Debug().Str("code", session.SecretCode).Msg("secret code collision, retrying")
	}
	return domain.Session{}, fmt.Errorf("allocate secret code: %w", domain.ErrCodeTaken)
}

// LookupCode resolves a join code to exactly one waiting session.
func (s *SessionService) LookupCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return "", domain.ErrInvalidCode
	}
	ids, err := s.sessions.FindWaitingByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", domain.ErrInvalidCode
	}
	return ids[0], nil
}

// Join adds a new participant with a fresh playerId to a waiting session.
func (s *SessionService) Join(ctx context.Context, sessionID, name string) (domain.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Participant{}, domain.ErrInvalidName
	}
	participant := domain.Participant{
		PlayerID: s.newID(),
		Name:     name,
		JoinedAt: s.now(),
	}
	if _, err := s.sessions.AppendParticipant(ctx, sessionID, participant); err != nil {
		return domain.Participant{}, err
	}
	s.log.Info().Str("session", sessionID).Str("player", participant.PlayerID).Msg("participant joined")
	return participant, nil
}

// JoinByCode is LookupCode followed by Join.
func (s *SessionService) JoinByCode(ctx context.Context, code, name string) (string, domain.Participant, error) {
	sessionID, err := s.LookupCode(ctx, code)
	if err != nil {
		return "", domain.Participant{}, err
	}
	participant, err := s.Join(ctx, sessionID, name)
	return sessionID, participant, err
}

// Advance opens the next question, or finishes the session after the last one.
// timerSeconds of zero uses the quiz default.
func (s *SessionService) Advance(ctx context.Context, sessionID, callerID string, timerSeconds int) (domain.Session, error) {
	return s.transition(ctx, sessionID, callerID, func(session *domain.Session) error {
		return session.Advance(timerSeconds, s.now())
	})
}

// End finishes the session immediately.
func (s *SessionService) End(ctx context.Context, sessionID, callerID string) (domain.Session, error) {
	return s.transition(ctx, sessionID, callerID, func(session *domain.Session) error {
		return session.End(s.now())
	})
}

func (s *SessionService) transition(ctx context.Context, sessionID, callerID string, apply func(*domain.Session) error) (domain.Session, error) {
	var wasFinished bool
	session, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsHost(callerID) {
			return domain.ErrNotHost
		}
		wasFinished = session.Status == domain.StatusFinished
		return apply(session)
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.log.Info().
		Str("session", sessionID).
		Str("status", string(session.Status)).
		Int("question", session.CurrentQuestionIndex).
		Int("timer", session.Timer).
		Msg("session advanced")

	if !wasFinished && session.Status == domain.StatusFinished {
		s.archive(ctx, session)
	}
	return session, nil
}

func (s *SessionService) archive(ctx context.Context, session domain.Session) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveSession(ctx, session); err != nil {
		s.log.Error().Err(err).Str("session", session.ID).Msg("archive finished session")
	}
}

// SubmitAnswer scores one answer inside a read-modify-write transaction on the session.
//
// Remaining time is resolved from the committed question start, not reported by the client.
// Validation failures return a zero delta and an error matching domain.ErrSubmissionRejected
// (or a not-found error). Store failures are logged and swallowed: the caller gets the
// computed delta with Recorded=false so the student can still move on.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, playerID string, questionIndex, answerIndex int) (domain.ScoreDelta, error) {
	var delta domain.ScoreDelta
	_, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		d, err := session.ApplyAnswer(playerID, questionIndex, answerIndex, session.RemainingFor(s.now()))
		if err != nil {
			return err
		}
		delta = d
		return nil
	})

	switch {
	case err == nil:
		return delta, nil
	case errors.Is(err, domain.ErrSubmissionRejected),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return domain.ScoreDelta{PlayerID: playerID, QuestionIndex: questionIndex}, err
	default:
		s.log.Warn().
			Err(err).
			Str("session", sessionID).
			Str("player", playerID).
			Int("question", questionIndex).
			Msg("score update failed")
		delta.PlayerID = playerID
		delta.QuestionIndex = questionIndex
		delta.Recorded = false
		return delta, nil
	}
}

// Get returns the current session document.
func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Scoreboard returns the ranked roster with playerID highlighted.
func (s *SessionService) Scoreboard(ctx context.Context, sessionID, playerID string) (domain.Scoreboard, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Scoreboard{}, err
	}
	return domain.ProjectScoreboard(session, playerID), nil
}

// Review returns the per-question answer review of a finished session.
func (s *SessionService) Review(ctx context.Context, sessionID, playerID string) ([]domain.ReviewItem, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.Review(session, playerID)
}

// Subscribe streams session snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Session, func(), error) {
	return s.sessions.Subscribe(ctx, sessionID)
}
