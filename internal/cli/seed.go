package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	quizmongo "classroom-quiz-service/internal/infra/mongo"
	"classroom-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

type quizSaver interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// NewSeedCmd upserts quizzes from a YAML file into every configured quiz store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quizzes from YAML into Postgres and/or MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			quizzes, err := readSeedFile(file)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, quizzes)
		},
	}
	cmd.Flags().StringVar(&file, "file", "quizzes.yaml", "YAML file with a top-level quizzes list")
	return cmd
}

func readSeedFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(seed.Quizzes) == 0 {
		return nil, fmt.Errorf("%s contains no quizzes", path)
	}
	return seed.Quizzes, nil
}

func runSeed(ctx context.Context, cfg config.Config, quizzes []domain.Quiz) error {
	log := newLogger(cfg)
	var savers []quizSaver

	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		savers = append(savers, postgres.NewQuizWriter(db))
	}

	if cfg.Mongo.URI != "" {
		client, err := connectMongo(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		savers = append(savers, quizmongo.NewQuizStore(client.Database(mongoDatabase(cfg)), cfg.Mongo.Collection))
	}

	if len(savers) == 0 {
		return fmt.Errorf("neither postgres nor mongo is configured")
	}

	for _, quiz := range quizzes {
		for _, saver := range savers {
			if err := saver.SaveQuiz(ctx, quiz); err != nil {
				return err
			}
		}
		log.Info().Str("quiz", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz seeded")
	}
	return nil
}

func connectMongo(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func mongoDatabase(cfg config.Config) string {
	if cfg.Mongo.Database != "" {
		return cfg.Mongo.Database
	}
	return "classroom"
}
