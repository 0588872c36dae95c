package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

type WSHandler struct {
	service      *app.SessionService
	tokens       *auth.Tokens
	log          zerolog.Logger
	tickInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, tokens *auth.Tokens, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service:      service,
		tokens:       tokens,
		log:          log,
		tickInterval: time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// viewer is the identity behind one connection: exactly one of hostID and playerID is set.
type viewer struct {
	hostID   string
	playerID string
}

func (v viewer) isHost() bool { return v.hostID != "" }

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type tickPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Remaining     int `json:"remaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func errorMessage(err error) outboundMessage[any] {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	typ := "error"
	if code == "answerRejected" {
		typ = "answerRejected"
	}
	return outboundMessage[any]{Type: typ, Payload: errorPayload{Message: msg, Code: code}}
}

// ServeWS upgrades HTTP requests to websockets, streams session views and countdown ticks,
// and relays host transitions and student answers to the session use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	token := r.URL.Query().Get("token")
	if sessionID == "" || token == "" {
		writeError(w, http.StatusBadRequest, "invalid", "missing sessionId or token")
		return
	}

	session, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	who, err := h.identify(session, token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("session", sessionID).Msg("ws write error")
				_ = conn.Close()
				return
			}
		}
	}()

	countdown := app.NewCountdown(h.service.Now, h.tickInterval)

	go func() {
		defer close(updatesDone)
		armed := countdownKey{index: domain.NotStarted}
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				enqueue(outboundMessage[any]{Type: "session", Payload: h.render(snapshot, who)})

				key := keyFor(snapshot)
				if key == armed {
					continue
				}
				armed = key
				if snapshot.Status != domain.StatusActive {
					countdown.Stop()
					continue
				}
				index := snapshot.CurrentQuestionIndex
				countdown.Arm(snapshot.QuestionStartTime, snapshot.Timer, func(remaining int) {
					enqueue(outboundMessage[any]{Type: "tick", Payload: tickPayload{QuestionIndex: index, Remaining: remaining}})
				})
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.handle(r, sessionID, who, inbound); ok {
			enqueue(reply)
		}
	}

	close(closeSignals)
	<-updatesDone
	countdown.Stop()
	close(send)
	<-writerDone
}

type countdownKey struct {
	status domain.Status
	index  int
	start  time.Time
}

func keyFor(s domain.Session) countdownKey {
	return countdownKey{status: s.Status, index: s.CurrentQuestionIndex, start: s.QuestionStartTime}
}

func (h *WSHandler) identify(session domain.Session, token string) (viewer, error) {
	if claims, err := h.tokens.VerifyTutor(token); err == nil {
		if !session.IsHost(claims.TutorID) {
			return viewer{}, domain.ErrNotHost
		}
		return viewer{hostID: claims.TutorID}, nil
	}
	claims, err := h.tokens.VerifyPlayer(token)
	if err != nil {
		return viewer{}, err
	}
	if claims.SessionID != session.ID {
		return viewer{}, auth.ErrInvalidToken
	}
	if _, ok := session.Participant(claims.PlayerID); !ok {
		return viewer{}, domain.ErrParticipantNotFound
	}
	return viewer{playerID: claims.PlayerID}, nil
}

func (h *WSHandler) render(s domain.Session, who viewer) domain.SessionView {
	if who.isHost() {
		return domain.HostView(s, h.service.Now())
	}
	return domain.PlayerView(s, who.playerID, h.service.Now())
}

// handle executes one inbound command. Transitions need no reply: the subscription pushes
// the committed document to every viewer, this one included.
func (h *WSHandler) handle(r *http.Request, sessionID string, who viewer, in inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch in.Type {
	case "advance":
		if !who.isHost() {
			return errorMessage(domain.ErrNotHost), true
		}
		var payload advanceRequest
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				return errorMessage(domain.ErrInvalidTimer), true
			}
		}
		timer := 0
		if payload.Timer != nil {
			timer = *payload.Timer
		}
		if _, err := h.service.Advance(ctx, sessionID, who.hostID, timer); err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{}, false
	case "end":
		if !who.isHost() {
			return errorMessage(domain.ErrNotHost), true
		}
		if _, err := h.service.End(ctx, sessionID, who.hostID); err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{}, false
	case "answer":
		if who.isHost() {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "hosts cannot answer", Code: "forbidden"}}, true
		}
		var payload answerRequest
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Code: "invalid"}}, true
		}
		delta, err := h.service.SubmitAnswer(ctx, sessionID, who.playerID, payload.QuestionIndex, payload.AnswerIndex)
		if err != nil {
			if !errors.Is(err, domain.ErrSubmissionRejected) {
				h.log.Debug().Err(err).Str("session", sessionID).Str("player", who.playerID).Msg("answer failed")
			}
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "answerResult", Payload: delta}, true
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Code: "invalid"}}, true
	}
}
