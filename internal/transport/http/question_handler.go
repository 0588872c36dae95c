package http

import (
	"errors"
	"net/http"

	"classroom-quiz-service/internal/questionbank"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// QuestionHandler proxies question sets from the upstream bank.
type QuestionHandler struct {
	client *questionbank.Client
	log    zerolog.Logger
}

func NewQuestionHandler(client *questionbank.Client, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{client: client, log: log}
}

// Get handles GET /questions/{unitId}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["unitId"]
	body, err := h.client.FetchUnit(r.Context(), unitID)
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	var statusErr *questionbank.StatusError
	switch {
	case errors.As(err, &statusErr):
		writeError(w, statusErr.StatusCode, "upstream", statusErr.Message)
	case errors.Is(err, questionbank.ErrEmptyUnit):
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
	default:
		h.log.Error().Err(err).Str("unit", unitID).Msg("question bank request failed")
		writeError(w, http.StatusInternalServerError, "internal", "failed to fetch questions")
	}
}
