package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type sessionResultRow struct {
	bun.BaseModel `bun:"table:session_results"`

	SessionID    string                   `bun:"session_id,pk"`
	QuizID       string                   `bun:"quiz_id"`
	QuizTitle    string                   `bun:"quiz_title"`
	HostID       string                   `bun:"host_id"`
	Participants int                      `bun:"participants"`
	FinishedAt   time.Time                `bun:"finished_at"`
	Standings    []domain.ScoreboardEntry `bun:"standings,type:jsonb"`
}

// Archiver writes final standings of finished sessions to Postgres.
type Archiver struct {
	db *bun.DB
}

func NewArchiver(db *bun.DB) *Archiver {
	return &Archiver{db: db}
}

// ArchiveSession stores the final scoreboard. Archiving the same session twice overwrites the row.
func (a *Archiver) ArchiveSession(ctx context.Context, session domain.Session) error {
	board := domain.ProjectScoreboard(session, "")
	finishedAt := session.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	row := &sessionResultRow{
		SessionID:    session.ID,
		QuizID:       session.QuizData.ID,
		QuizTitle:    session.QuizData.Title,
		HostID:       session.HostID,
		Participants: board.PlayersJoined,
		FinishedAt:   finishedAt,
		Standings:    board.Entries,
	}
	_, err := a.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("standings = EXCLUDED.standings").
		Set("participants = EXCLUDED.participants").
		Set("finished_at = EXCLUDED.finished_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", session.ID, err)
	}
	return nil
}

// Result loads an archived session.
func (a *Archiver) Result(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	var row sessionResultRow
	err := a.db.NewSelect().Model(&row).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load session result: %w", err)
	}
	return domain.SessionResult{
		SessionID:    row.SessionID,
		QuizID:       row.QuizID,
		QuizTitle:    row.QuizTitle,
		HostID:       row.HostID,
		Participants: row.Participants,
		FinishedAt:   row.FinishedAt,
		Standings:    row.Standings,
	}, nil
}
