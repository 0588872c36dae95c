package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketLiveSessionFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	session, err := env.service.CreateSession(ctx, "tutor-1", "quiz-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	player, err := env.service.Join(ctx, session.ID, "Ada")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	playerToken, _ := env.tokens.IssuePlayer(session.ID, player.PlayerID)

	hostConn := dial(t, env, session.ID, env.tutorToken(t, "tutor-1"))
	defer hostConn.Close()
	playerConn := dial(t, env, session.ID, playerToken)
	defer playerConn.Close()

	// Both viewers get the current document first.
	if msg := readUntil(t, hostConn, "session"); msg.Payload["secretCode"] != session.SecretCode {
		t.Fatalf("host view should carry the join code, got %v", msg.Payload["secretCode"])
	}
	if msg := readUntil(t, playerConn, "session"); msg.Payload["status"] != string(domain.StatusWaiting) {
		t.Fatalf("expected waiting, got %v", msg.Payload["status"])
	}

	if err := playerConn.WriteJSON(map[string]any{"type": "advance"}); err != nil {
		t.Fatalf("write advance: %v", err)
	}
	if msg := readUntil(t, playerConn, "error"); msg.Payload["code"] != "forbidden" {
		t.Fatalf("students must not advance, got %v", msg.Payload)
	}

	if err := hostConn.WriteJSON(map[string]any{"type": "advance", "payload": map[string]any{"timer": 20}}); err != nil {
		t.Fatalf("write advance: %v", err)
	}

	active := readUntil(t, playerConn, "session")
	if active.Payload["status"] != string(domain.StatusActive) {
		t.Fatalf("expected active, got %v", active.Payload["status"])
	}
	question, _ := active.Payload["question"].(map[string]any)
	if question == nil {
		t.Fatalf("expected open question in player view")
	}
	if _, leaked := question["correctAnswerIndex"]; leaked {
		t.Fatalf("player view leaked the answer key")
	}

	tick := readUntil(t, playerConn, "tick")
	if remaining, _ := tick.Payload["remaining"].(float64); remaining <= 0 || remaining > 20 {
		t.Fatalf("unexpected tick remaining %v", tick.Payload["remaining"])
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": 0,
			"answerIndex":   1,
		},
	}
	if err := playerConn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	result := readUntil(t, playerConn, "answerResult")
	if result.Payload["correct"] != true {
		t.Fatalf("expected correct answer, got %v", result.Payload)
	}

	if err := playerConn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	if msg := readUntil(t, playerConn, "answerRejected"); msg.Payload["code"] != "answerRejected" {
		t.Fatalf("expected rejection, got %v", msg.Payload)
	}

	if err := hostConn.WriteJSON(map[string]any{"type": "end"}); err != nil {
		t.Fatalf("write end: %v", err)
	}
	for {
		msg := readUntil(t, playerConn, "session")
		if msg.Payload["status"] == string(domain.StatusFinished) {
			break
		}
	}
}

func TestWebSocketRejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	session, err := env.service.CreateSession(context.Background(), "tutor-1", "quiz-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	cases := map[string]struct {
		token  string
		status int
	}{
		"other tutor":   {token: env.tutorToken(t, "tutor-2"), status: http.StatusForbidden},
		"garbage token": {token: "garbage", status: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(env, session.ID, tc.token), nil)
			if err == nil {
				t.Fatalf("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %+v", tc.status, resp)
			}
		})
	}
}

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func wsURL(env *testEnv, sessionID, token string) string {
	return "ws" + env.server.URL[len("http"):] + "/ws?sessionId=" + sessionID + "&token=" + token
}

func dial(t *testing.T, env *testEnv, sessionID, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env, sessionID, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

// readUntil skips interleaved messages (ticks, intermediate snapshots) until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) wsMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg wsMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg
		}
	}
	t.Fatalf("no %s message within 50 reads", expect)
	return wsMessage{}
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:      "quiz-1",
			TutorID: "tutor-1",
			Title:   "Arithmetic",
			Questions: []domain.Question{
				{
					Text:               "What is 2 + 2?",
					Answers:            []string{"3", "4", "5"},
					CorrectAnswerIndex: 1,
				},
				{
					Text:               "What is 3 + 3?",
					Answers:            []string{"6", "9"},
					CorrectAnswerIndex: 0,
				},
			},
		},
	}
}
