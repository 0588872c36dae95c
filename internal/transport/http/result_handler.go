package http

import (
	"net/http"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/mux"
)

// ResultHandler serves archived outcomes of finished sessions.
type ResultHandler struct {
	results app.ResultReader
}

func NewResultHandler(results app.ResultReader) *ResultHandler {
	return &ResultHandler{results: results}
}

// Get handles GET /v1/sessions/{id}/result. Only the tutor who hosted the session may read it.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.results.Result(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if result.HostID != tutorID(r.Context()) {
		writeServiceError(w, domain.ErrNotHost)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
