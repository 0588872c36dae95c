package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps a use-case error to an HTTP status and a stable machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSubmissionRejected):
		return http.StatusConflict, "answerRejected"
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound, "notFound"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrInvalidTimer):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, domain.ErrNotJoinable),
		errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrNotFinished):
		return http.StatusConflict, "state"
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrCodeTaken),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "retry"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeServiceError hides internal error text from clients.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
