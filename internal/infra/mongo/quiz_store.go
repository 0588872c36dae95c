package mongo

import (
	"context"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds one document per quiz keyed by the quiz id.
const DefaultCollection = "quizzes"

// QuizStore reads and upserts authored quizzes in a MongoDB collection.
type QuizStore struct {
	collection *mongo.Collection
}

func NewQuizStore(db *mongo.Database, collection string) *QuizStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &QuizStore{collection: db.Collection(collection)}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.collection.FindOne(ctx, bson.M{"_id": quizID}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.ID = quizID
	return quiz, nil
}

// SaveQuiz validates quiz and replaces the stored document, inserting it when absent.
func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("%w: quiz id is empty", domain.ErrInvalidQuiz)
	}
	if err := quiz.Validate(); err != nil {
		return err
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, quiz, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
	}
	return nil
}
