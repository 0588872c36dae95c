package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TutorClaims identify a tutor; the tutor id becomes the host id of sessions they create.
type TutorClaims struct {
	TutorID string `json:"tutorId"`
	jwt.RegisteredClaims
}

// PlayerClaims are scoped to one session.
type PlayerClaims struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) IssueTutor(tutorID string) (string, error) {
	if tutorID == "" {
		return "", fmt.Errorf("issue tutor token: empty tutor id")
	}
	claims := &TutorClaims{TutorID: tutorID, RegisteredClaims: t.registered(tutorID)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) IssuePlayer(sessionID, playerID string) (string, error) {
	if sessionID == "" || playerID == "" {
		return "", fmt.Errorf("issue player token: empty session or player id")
	}
	claims := &PlayerClaims{SessionID: sessionID, PlayerID: playerID, RegisteredClaims: t.registered(playerID)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) VerifyTutor(token string) (*TutorClaims, error) {
	claims := &TutorClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TutorID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) VerifyPlayer(token string) (*PlayerClaims, error) {
	claims := &PlayerClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) registered(subject string) jwt.RegisteredClaims {
	now := t.now()
	rc := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if t.ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	return rc
}

func (t *Tokens) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
