package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	pgstore "classroom-quiz-service/internal/infra/postgres"
	pgmigrations "classroom-quiz-service/internal/infra/postgres/migrations"
	infraredis "classroom-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	bunmigrate "github.com/uptrace/bun/migrate"
)

func TestLiveSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(pgURL)
	defer db.Close()
	migrate(t, ctx, db)
	if err := pgstore.NewQuizWriter(db).SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	archiver := pgstore.NewArchiver(db)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute).WithMaxRetries(100)
	service := app.NewSessionService(sessionStore, quizRepo, app.WithArchiver(archiver))

	session, err := service.CreateSession(ctx, "tutor-1", "quiz-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sessionID, alice, err := service.JoinByCode(ctx, session.SecretCode, "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	bob, err := service.Join(ctx, sessionID, "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := service.Advance(ctx, sessionID, "tutor-1", 30); err != nil {
		t.Fatalf("advance: %v", err)
	}

	var wg sync.WaitGroup
	deltas := make([]domain.ScoreDelta, 2)
	for i, player := range []domain.Participant{alice, bob} {
		wg.Add(1)
		go func(i int, playerID string) {
			defer wg.Done()
			delta, err := service.SubmitAnswer(ctx, sessionID, playerID, 0, 1)
			if err != nil {
				t.Errorf("submit: %v", err)
			}
			deltas[i] = delta
		}(i, player.PlayerID)
	}
	wg.Wait()
	for _, d := range deltas {
		if !d.Correct || !d.Recorded || d.Points < 100 {
			t.Fatalf("expected recorded correct answer, got %+v", d)
		}
	}

	board, err := service.Scoreboard(ctx, sessionID, bob.PlayerID)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].Score == 0 || board.Entries[1].Score == 0 {
		t.Fatalf("expected both scores reflected, got %+v", board.Entries)
	}

	finished, err := service.End(ctx, sessionID, "tutor-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if finished.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", finished.Status)
	}

	result, err := archiver.Result(ctx, sessionID)
	if err != nil {
		t.Fatalf("archived result: %v", err)
	}
	if result.QuizTitle != "Arithmetic" || len(result.Standings) != 2 {
		t.Fatalf("unexpected archive row %+v", result)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrate(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := bunmigrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		TutorID: "tutor-1",
		Title:   "Arithmetic",
		Questions: []domain.Question{
			{
				Text:               "What is 2 + 2?",
				Answers:            []string{"3", "4", "5"},
				CorrectAnswerIndex: 1,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
