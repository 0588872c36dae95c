package http

import (
	"net/http"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/questionbank"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Sessions  *app.SessionService
	Tokens    *auth.Tokens
	Questions *questionbank.Client
	// Results is optional; without it the archived result route is not mounted.
	Results app.ResultReader
	Log     zerolog.Logger
}

// NewRouter builds the REST and websocket surface.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(accessLog(d.Log))

	sessions := NewSessionHandler(d.Sessions, d.Tokens)
	ws := NewWSHandler(d.Sessions, d.Tokens, d.Log)
	authn := NewAuthenticator(d.Tokens)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS).Methods(http.MethodGet)
	if d.Questions != nil {
		r.HandleFunc("/questions/{unitId}", NewQuestionHandler(d.Questions, d.Log).Get).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/join", sessions.JoinByCode).Methods(http.MethodPost)
	v1.HandleFunc("/join/lookup", sessions.Lookup).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}", sessions.Get).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/participants", sessions.Join).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/scoreboard", sessions.Scoreboard).Methods(http.MethodGet)

	tutor := v1.NewRoute().Subrouter()
	tutor.Use(authn.RequireTutor)
	tutor.HandleFunc("/sessions", sessions.Create).Methods(http.MethodPost)
	tutor.HandleFunc("/sessions/{id}/advance", sessions.Advance).Methods(http.MethodPost)
	tutor.HandleFunc("/sessions/{id}/end", sessions.End).Methods(http.MethodPost)
	if d.Results != nil {
		tutor.HandleFunc("/sessions/{id}/result", NewResultHandler(d.Results).Get).Methods(http.MethodGet)
	}

	player := v1.NewRoute().Subrouter()
	player.Use(authn.RequirePlayer)
	player.HandleFunc("/sessions/{id}/answers", sessions.SubmitAnswer).Methods(http.MethodPost)
	player.HandleFunc("/sessions/{id}/review", sessions.Review).Methods(http.MethodGet)

	return r
}
