package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session id does not resolve to a document.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrParticipantNotFound is returned when a player id is not on the session roster.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates quiz content violates the question/answer invariants.
	ErrInvalidQuiz = errors.New("invalid quiz")

	ErrInvalidCode  = errors.New("invalid code")
	ErrInvalidName  = errors.New("name is required")
	ErrInvalidTimer = errors.New("timer must be positive")
	ErrCodeTaken    = errors.New("secret code already in use")

	// ErrNotHost is returned when a caller other than the session creator drives the session.
	ErrNotHost = errors.New("caller is not the session host")
	// ErrNotJoinable is returned for join attempts after the session left the waiting state.
	ErrNotJoinable = errors.New("session not joinable")
	// ErrSessionFinished is returned for transitions attempted on a finished session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrNotFinished is returned when results are requested before the session ends.
	ErrNotFinished = errors.New("session not finished")

	// ErrConflict is returned when an optimistic transaction kept losing to concurrent writers.
	ErrConflict = errors.New("session update conflict")

	// ErrSubmissionRejected is the parent of every answer validation failure.
	ErrSubmissionRejected = errors.New("submission rejected")

	ErrNotActive       = rejection("no question is open")
	ErrStaleQuestion   = rejection("question is no longer current")
	ErrTimeUp          = rejection("time is up")
	ErrInvalidAnswer   = rejection("answer index out of range")
	ErrAlreadyAnswered = rejection("question already answered")
)

type rejectionError struct {
	msg string
}

func rejection(msg string) error {
	return &rejectionError{msg: msg}
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSubmissionRejected, e.msg)
}

func (e *rejectionError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

func wrapInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuiz, msg)
}
