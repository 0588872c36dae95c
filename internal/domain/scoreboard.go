package domain

import (
	"sort"
	"time"
)

// ScoreboardEntry is one ranked row.
type ScoreboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsYou    bool   `json:"isYou,omitempty"`
}

// Scoreboard is the ranked roster derived from a session document.
type Scoreboard struct {
	SessionID     string            `json:"sessionId"`
	Status        Status            `json:"status"`
	PlayersJoined int               `json:"playersJoined"`
	Entries       []ScoreboardEntry `json:"entries"`
	You           *ScoreboardEntry  `json:"you,omitempty"`
}

// ProjectScoreboard ranks participants by score descending. Equal scores keep join order,
// so the projection is deterministic for a given document. localPlayerID marks the caller's row.
func ProjectScoreboard(s Session, localPlayerID string) Scoreboard {
	entries := make([]ScoreboardEntry, len(s.Participants))
	for i, p := range s.Participants {
		entries[i] = ScoreboardEntry{PlayerID: p.PlayerID, Name: p.Name, Score: p.Score}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	board := Scoreboard{
		SessionID:     s.ID,
		Status:        s.Status,
		PlayersJoined: len(entries),
		Entries:       entries,
	}
	for i := range entries {
		entries[i].Rank = i + 1
		if localPlayerID != "" && entries[i].PlayerID == localPlayerID {
			entries[i].IsYou = true
			you := entries[i]
			board.You = &you
		}
	}
	return board
}

// Podium returns up to the first three ranked entries.
func (b Scoreboard) Podium() []ScoreboardEntry {
	if len(b.Entries) <= 3 {
		return b.Entries
	}
	return b.Entries[:3]
}

// SessionResult is the archived outcome of one finished session.
type SessionResult struct {
	SessionID    string            `json:"sessionId"`
	QuizID       string            `json:"quizId"`
	QuizTitle    string            `json:"quizTitle"`
	HostID       string            `json:"hostId"`
	Participants int               `json:"participants"`
	FinishedAt   time.Time         `json:"finishedAt"`
	Standings    []ScoreboardEntry `json:"standings"`
}
