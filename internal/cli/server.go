package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	quizmongo "classroom-quiz-service/internal/infra/mongo"
	"classroom-quiz-service/internal/infra/postgres"
	redisstore "classroom-quiz-service/internal/infra/redis"
	"classroom-quiz-service/internal/questionbank"
	transport "classroom-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 6*time.Hour)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	opts := []app.Option{
		app.WithLogger(log),
		app.WithCodeAttempts(cfg.Session.CodeAttempts),
		app.WithDefaultTimer(cfg.Quiz.DefaultTimer),
	}

	var results app.ResultReader
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		archiver := postgres.NewArchiver(db)
		opts = append(opts, app.WithArchiver(archiver))
		results = archiver

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)
	}

	if cfg.Mongo.URI != "" {
		client, err := connectMongo(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		loader = quizmongo.NewQuizStore(client.Database(mongoDatabase(cfg)), cfg.Mongo.Collection)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var store app.SessionStore
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		store = redisstore.NewSessionStore(redisClient, sessionTTL).WithMaxRetries(cfg.Session.MaxTxRetries)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore().WithMaxRetries(cfg.Session.MaxTxRetries)
	}
	service := app.NewSessionService(store, quizRepo, opts...)

	var questions *questionbank.Client
	if cfg.QuestionBank.BaseURL != "" {
		questions = questionbank.NewClient(cfg.QuestionBank.BaseURL, &http.Client{
			Timeout: config.TTLDuration(cfg.QuestionBank.Timeout, 10*time.Second),
		})
	}

	handler := transport.NewRouter(transport.Deps{
		Sessions:  service,
		Tokens:    newTokens(cfg, log),
		Questions: questions,
		Results:   results,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", finalPort).
			Bool("redis", redisClient != nil).
			Bool("postgres", cfg.Postgres.URL != "").
			Bool("mongo", cfg.Mongo.URI != "").
			Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes backs the server when no quiz database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:           "quiz-1",
			Title:        "Warm-up",
			DefaultTimer: domain.DefaultTimerSeconds,
			Questions: []domain.Question{
				{
					Text:               "What is 2 + 2?",
					Answers:            []string{"3", "4", "5"},
					CorrectAnswerIndex: 1,
				},
				{
					Text:               "Which gas do plants absorb?",
					Answers:            []string{"Oxygen", "Carbon dioxide", "Nitrogen"},
					CorrectAnswerIndex: 1,
				},
			},
		},
	}
}
