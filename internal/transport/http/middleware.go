package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"classroom-quiz-service/internal/auth"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	tutorIDKey   contextKey = "tutorId"
	playerIDKey  contextKey = "playerId"
	sessionIDKey contextKey = "sessionId"
)

// Authenticator turns bearer tokens into caller identities on the request context.
type Authenticator struct {
	tokens *auth.Tokens
}

func NewAuthenticator(tokens *auth.Tokens) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// RequireTutor validates a tutor token from the Authorization header.
func (a *Authenticator) RequireTutor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}
		claims, err := a.tokens.VerifyTutor(token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), tutorIDKey, claims.TutorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePlayer validates a session-scoped player token.
func (a *Authenticator) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}
		claims, err := a.tokens.VerifyPlayer(token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), playerIDKey, claims.PlayerID)
		ctx = context.WithValue(ctx, sessionIDKey, claims.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tutorID(ctx context.Context) string {
	v, _ := ctx.Value(tutorIDKey).(string)
	return v
}

func playerID(ctx context.Context) string {
	v, _ := ctx.Value(playerIDKey).(string)
	return v
}

func tokenSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// accessLog writes one line per request. Upgraded websocket requests log when they close.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
