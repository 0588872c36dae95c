package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/mux"
)

// SessionHandler serves the live-session REST endpoints.
type SessionHandler struct {
	service *app.SessionService
	tokens  *auth.Tokens
}

func NewSessionHandler(service *app.SessionService, tokens *auth.Tokens) *SessionHandler {
	return &SessionHandler{service: service, tokens: tokens}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

type createSessionResponse struct {
	SessionID  string `json:"sessionId"`
	SecretCode string `json:"secretCode"`
}

type lookupRequest struct {
	Code string `json:"code"`
}

type lookupResponse struct {
	SessionID string `json:"sessionId"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinByCodeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type joinResponse struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Token     string `json:"token"`
}

type advanceRequest struct {
	Timer *int `json:"timer,omitempty"`
}

type answerRequest struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req, false); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "invalid", "quizId is required")
		return
	}
	session, err := h.service.CreateSession(r.Context(), tutorID(r.Context()), req.QuizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: session.ID, SecretCode: session.SecretCode})
}

// Lookup handles POST /v1/join/lookup
func (h *SessionHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	id, err := h.service.LookupCode(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{SessionID: id})
}

// Join handles POST /v1/sessions/{id}/participants
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	var req joinRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	participant, err := h.service.Join(r.Context(), sessionID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeJoined(w, sessionID, participant)
}

// JoinByCode handles POST /v1/join: code lookup and join in one call.
func (h *SessionHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	var req joinByCodeRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	sessionID, participant, err := h.service.JoinByCode(r.Context(), req.Code, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeJoined(w, sessionID, participant)
}

func (h *SessionHandler) writeJoined(w http.ResponseWriter, sessionID string, participant domain.Participant) {
	token, err := h.tokens.IssuePlayer(sessionID, participant.PlayerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{
		SessionID: sessionID,
		PlayerID:  participant.PlayerID,
		Name:      participant.Name,
		Token:     token,
	})
}

// Get handles GET /v1/sessions/{id} for either the host or a joined student.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
		return
	}
	session, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if claims, err := h.tokens.VerifyTutor(token); err == nil {
		if !session.IsHost(claims.TutorID) {
			writeServiceError(w, domain.ErrNotHost)
			return
		}
		writeJSON(w, http.StatusOK, domain.HostView(session, h.service.Now()))
		return
	}
	claims, err := h.tokens.VerifyPlayer(token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if claims.SessionID != sessionID {
		writeError(w, http.StatusForbidden, "forbidden", "token belongs to another session")
		return
	}
	writeJSON(w, http.StatusOK, domain.PlayerView(session, claims.PlayerID, h.service.Now()))
}

// Advance handles POST /v1/sessions/{id}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	timer := 0
	if req.Timer != nil {
		timer = *req.Timer
	}
	session, err := h.service.Advance(r.Context(), mux.Vars(r)["id"], tutorID(r.Context()), timer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.HostView(session, h.service.Now()))
}

// End handles POST /v1/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.End(r.Context(), mux.Vars(r)["id"], tutorID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.HostView(session, h.service.Now()))
}

// SubmitAnswer handles POST /v1/sessions/{id}/answers
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if tokenSessionID(r.Context()) != sessionID {
		writeError(w, http.StatusForbidden, "forbidden", "token belongs to another session")
		return
	}
	var req answerRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	delta, err := h.service.SubmitAnswer(r.Context(), sessionID, playerID(r.Context()), req.QuestionIndex, req.AnswerIndex)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

// Scoreboard handles GET /v1/sessions/{id}/scoreboard
func (h *SessionHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Scoreboard(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("playerId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Review handles GET /v1/sessions/{id}/review
func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if tokenSessionID(r.Context()) != sessionID {
		writeError(w, http.StatusForbidden, "forbidden", "token belongs to another session")
		return
	}
	items, err := h.service.Review(r.Context(), sessionID, playerID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func decodeBody(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
