package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/questionbank"
	"github.com/rs/zerolog"
)

type testEnv struct {
	server  *httptest.Server
	service *app.SessionService
	tokens  *auth.Tokens
}

func newTestEnv(t *testing.T, questions *questionbank.Client) *testEnv {
	t.Helper()
	return newTestEnvWith(t, Deps{Questions: questions})
}

// newTestEnvWith fills Sessions, Tokens and Log into d and serves the router.
func newTestEnvWith(t *testing.T, d Deps) *testEnv {
	t.Helper()
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewSessionService(store, quizRepo)
	tokens := auth.NewTokens("test-secret", time.Hour)

	d.Sessions = service
	d.Tokens = tokens
	d.Log = zerolog.Nop()
	server := httptest.NewServer(NewRouter(d))
	t.Cleanup(server.Close)
	return &testEnv{server: server, service: service, tokens: tokens}
}

func (e *testEnv) tutorToken(t *testing.T, tutorID string) string {
	t.Helper()
	token, err := e.tokens.IssueTutor(tutorID)
	if err != nil {
		t.Fatalf("issue tutor token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestSessionRESTFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	host := env.tutorToken(t, "tutor-1")

	if status := env.do(t, http.MethodPost, "/v1/sessions", "", createSessionRequest{QuizID: "quiz-1"}, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	var created createSessionResponse
	if status := env.do(t, http.MethodPost, "/v1/sessions", host, createSessionRequest{QuizID: "quiz-1"}, &created); status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}
	if len(created.SecretCode) != 6 || created.SessionID == "" {
		t.Fatalf("unexpected create response %+v", created)
	}

	var found lookupResponse
	if status := env.do(t, http.MethodPost, "/v1/join/lookup", "", lookupRequest{Code: created.SecretCode}, &found); status != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", status)
	}
	if found.SessionID != created.SessionID {
		t.Fatalf("lookup resolved %q, want %q", found.SessionID, created.SessionID)
	}
	if status := env.do(t, http.MethodPost, "/v1/join/lookup", "", lookupRequest{Code: "12"}, nil); status != http.StatusBadRequest {
		t.Fatalf("malformed code: expected 400, got %d", status)
	}

	base := "/v1/sessions/" + created.SessionID
	var joined joinResponse
	if status := env.do(t, http.MethodPost, base+"/participants", "", joinRequest{Name: "Ada"}, &joined); status != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d", status)
	}
	if joined.PlayerID == "" || joined.Token == "" {
		t.Fatalf("unexpected join response %+v", joined)
	}

	if status := env.do(t, http.MethodPost, base+"/advance", env.tutorToken(t, "tutor-2"), nil, nil); status != http.StatusForbidden {
		t.Fatalf("advance by non-host: expected 403, got %d", status)
	}

	var hostView domain.SessionView
	if status := env.do(t, http.MethodPost, base+"/advance", host, advanceRequest{}, &hostView); status != http.StatusOK {
		t.Fatalf("advance: expected 200, got %d", status)
	}
	if hostView.Status != domain.StatusActive || hostView.CurrentQuestionIndex != 0 {
		t.Fatalf("expected active question 0, got %s/%d", hostView.Status, hostView.CurrentQuestionIndex)
	}
	if hostView.Question == nil || hostView.Question.CorrectAnswerIndex == nil {
		t.Fatalf("host view should include the answer key")
	}
	if hostView.Question.MaxPoints != domain.MaxScore(domain.DefaultTimerSeconds) {
		t.Fatalf("expected max points %d, got %d", domain.MaxScore(domain.DefaultTimerSeconds), hostView.Question.MaxPoints)
	}

	if status := env.do(t, http.MethodPost, base+"/participants", "", joinRequest{Name: "Late"}, nil); status != http.StatusConflict {
		t.Fatalf("join after start: expected 409, got %d", status)
	}

	var playerView domain.SessionView
	if status := env.do(t, http.MethodGet, base, joined.Token, nil, &playerView); status != http.StatusOK {
		t.Fatalf("player view: expected 200, got %d", status)
	}
	if playerView.Question == nil || playerView.Question.CorrectAnswerIndex != nil {
		t.Fatalf("player view must hide the answer key while unanswered: %+v", playerView.Question)
	}
	if playerView.SecretCode != "" {
		t.Fatalf("player view must not expose the join code")
	}

	var delta domain.ScoreDelta
	if status := env.do(t, http.MethodPost, base+"/answers", joined.Token, answerRequest{QuestionIndex: 0, AnswerIndex: 1}, &delta); status != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d", status)
	}
	if !delta.Correct || delta.Points < 100 || !delta.Recorded {
		t.Fatalf("unexpected delta %+v", delta)
	}

	var rejected errorBody
	if status := env.do(t, http.MethodPost, base+"/answers", joined.Token, answerRequest{QuestionIndex: 0, AnswerIndex: 1}, &rejected); status != http.StatusConflict {
		t.Fatalf("second answer: expected 409, got %d", status)
	}
	if rejected.Code != "answerRejected" {
		t.Fatalf("expected answerRejected code, got %q", rejected.Code)
	}

	var board domain.Scoreboard
	if status := env.do(t, http.MethodGet, base+"/scoreboard?playerId="+joined.PlayerID, "", nil, &board); status != http.StatusOK {
		t.Fatalf("scoreboard: expected 200, got %d", status)
	}
	if len(board.Entries) != 1 || !board.Entries[0].IsYou || board.Entries[0].Score != delta.TotalScore {
		t.Fatalf("unexpected scoreboard %+v", board)
	}

	if status := env.do(t, http.MethodGet, base+"/review", joined.Token, nil, nil); status != http.StatusConflict {
		t.Fatalf("review before finish: expected 409, got %d", status)
	}

	var finished domain.SessionView
	if status := env.do(t, http.MethodPost, base+"/end", host, nil, &finished); status != http.StatusOK {
		t.Fatalf("end: expected 200, got %d", status)
	}
	if finished.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", finished.Status)
	}
	if len(finished.Podium) != 1 || finished.Podium[0].PlayerID != joined.PlayerID {
		t.Fatalf("expected single-entry podium, got %+v", finished.Podium)
	}

	var review []domain.ReviewItem
	if status := env.do(t, http.MethodGet, base+"/review", joined.Token, nil, &review); status != http.StatusOK {
		t.Fatalf("review: expected 200, got %d", status)
	}
	if len(review) != 2 {
		t.Fatalf("expected review of 2 questions, got %d", len(review))
	}
}

func TestSessionRESTNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	var body errorBody
	if status := env.do(t, http.MethodGet, "/v1/sessions/missing/scoreboard", "", nil, &body); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if body.Code != "notFound" {
		t.Fatalf("expected notFound code, got %q", body.Code)
	}
	if status := env.do(t, http.MethodPost, "/v1/sessions", env.tutorToken(t, "tutor-1"), createSessionRequest{QuizID: "nope"}, nil); status != http.StatusNotFound {
		t.Fatalf("unknown quiz: expected 404, got %d", status)
	}
}

func TestQuestionProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions/unit/u1" {
			http.Error(w, "unit not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"questionText":"2+2?","answers":["3","4"]}]`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, questionbank.NewClient(upstream.URL, upstream.Client()))

	var questions []map[string]interface{}
	if status := env.do(t, http.MethodGet, "/questions/u1", "", nil, &questions); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(questions) != 1 || questions[0]["questionText"] != "2+2?" {
		t.Fatalf("body not relayed: %+v", questions)
	}

	var body errorBody
	if status := env.do(t, http.MethodGet, "/questions/u2", "", nil, &body); status != http.StatusNotFound {
		t.Fatalf("expected upstream 404 to be relayed, got %d", status)
	}
	if body.Error != "unit not found" {
		t.Fatalf("expected upstream message, got %q", body.Error)
	}
}

func TestQuestionProxyTransportFailure(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	env := newTestEnv(t, questionbank.NewClient(url, nil))

	var body errorBody
	if status := env.do(t, http.MethodGet, "/questions/u1", "", nil, &body); status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body.Error != "failed to fetch questions" {
		t.Fatalf("expected generic message, got %q", body.Error)
	}
}

func TestJoinByCodeRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	host := env.tutorToken(t, "tutor-1")

	var created createSessionResponse
	if status := env.do(t, http.MethodPost, "/v1/sessions", host, createSessionRequest{QuizID: "quiz-1"}, &created); status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}

	var joined joinResponse
	if status := env.do(t, http.MethodPost, "/v1/join", "", joinByCodeRequest{Code: created.SecretCode, Name: "Ada"}, &joined); status != http.StatusCreated {
		t.Fatalf("join by code: expected 201, got %d", status)
	}
	if joined.SessionID != created.SessionID || joined.PlayerID == "" || joined.Token == "" {
		t.Fatalf("unexpected join response %+v", joined)
	}
	claims, err := env.tokens.VerifyPlayer(joined.Token)
	if err != nil || claims.SessionID != created.SessionID || claims.PlayerID != joined.PlayerID {
		t.Fatalf("player token does not match join: %+v (%v)", claims, err)
	}

	unknown := "999999"
	if created.SecretCode == unknown {
		unknown = "100000"
	}
	if status := env.do(t, http.MethodPost, "/v1/join", "", joinByCodeRequest{Code: unknown, Name: "Bob"}, nil); status != http.StatusBadRequest {
		t.Fatalf("unknown code: expected 400, got %d", status)
	}
	if status := env.do(t, http.MethodPost, "/v1/join", "", joinByCodeRequest{Code: created.SecretCode, Name: " "}, nil); status != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400, got %d", status)
	}
}

type staticResults map[string]domain.SessionResult

func (r staticResults) Result(_ context.Context, id string) (domain.SessionResult, error) {
	if result, ok := r[id]; ok {
		return result, nil
	}
	return domain.SessionResult{}, domain.ErrSessionNotFound
}

func TestResultRoute(t *testing.T) {
	results := staticResults{
		"s1": {
			SessionID:    "s1",
			QuizTitle:    "Arithmetic",
			HostID:       "tutor-1",
			Participants: 1,
			Standings:    []domain.ScoreboardEntry{{Rank: 1, PlayerID: "p1", Name: "Ada", Score: 150}},
		},
	}
	env := newTestEnvWith(t, Deps{Results: results})

	var got domain.SessionResult
	if status := env.do(t, http.MethodGet, "/v1/sessions/s1/result", env.tutorToken(t, "tutor-1"), nil, &got); status != http.StatusOK {
		t.Fatalf("result: expected 200, got %d", status)
	}
	if got.QuizTitle != "Arithmetic" || len(got.Standings) != 1 || got.Standings[0].Score != 150 {
		t.Fatalf("unexpected result %+v", got)
	}
	if status := env.do(t, http.MethodGet, "/v1/sessions/s1/result", env.tutorToken(t, "tutor-2"), nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign tutor: expected 403, got %d", status)
	}
	if status := env.do(t, http.MethodGet, "/v1/sessions/missing/result", env.tutorToken(t, "tutor-1"), nil, nil); status != http.StatusNotFound {
		t.Fatalf("missing result: expected 404, got %d", status)
	}
	if status := env.do(t, http.MethodGet, "/v1/sessions/s1/result", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", status)
	}
}
