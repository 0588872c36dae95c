package app

import (
	"context"

	"classroom-quiz-service/internal/domain"
)

// SessionStore abstracts the live-session document store (in-memory, Redis, etc).
//
// Update is an optimistic read-modify-write: fn runs against the latest committed document and
// may run more than once if a concurrent writer commits first. An error from fn aborts the
// transaction without writing. AppendParticipant merges one roster entry by playerId without
// replacing the roster. Every committed write is published to subscribers of that session.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	FindWaitingByCode(ctx context.Context, code string) ([]string, error)
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error)
	AppendParticipant(ctx context.Context, id string, participant domain.Participant) (domain.Session, error)
	Subscribe(ctx context.Context, id string) (<-chan domain.Session, func(), error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Archiver persists the final document of a finished session.
type Archiver interface {
	ArchiveSession(ctx context.Context, session domain.Session) error
}

// ResultReader reads archived outcomes back.
type ResultReader interface {
	Result(ctx context.Context, sessionID string) (domain.SessionResult, error)
}
