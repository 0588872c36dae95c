package domain

import "time"

// Remaining returns the whole seconds left on a question that opened at start with a
// duration of timerSeconds, as observed at now. It never goes negative, and a viewer whose
// clock reads earlier than start sees the full duration rather than more.
func Remaining(start time.Time, timerSeconds int, now time.Time) int {
	if timerSeconds <= 0 || start.IsZero() {
		return 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := timerSeconds - int(elapsed/time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingFor resolves the countdown for the session's open question.
func (s *Session) RemainingFor(now time.Time) int {
	if s.Status != StatusActive {
		return 0
	}
	return Remaining(s.QuestionStartTime, s.Timer, now)
}
