package content

import (
	"context"
	"fmt"

	"github.com/quizhall/quizhall/internal/db/repository"
)

// Store loads question sequences from the Postgres question bank.
type Store struct {
	repo *repository.QuizRepository
}

var _ Loader = (*Store)(nil)

// NewStore creates a Postgres-backed question loader.
func NewStore(repo *repository.QuizRepository) *Store {
	return &Store{repo: repo}
}

// LoadQuestions fetches the ordered sequence for a quiz. A quiz with zero
// questions is treated as absent; a session cannot run on an empty sequence.
func (s *Store) LoadQuestions(ctx context.Context, sessionID string) ([]Question, error) {
	rows, err := s.repo.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	questions := make([]Question, len(rows))
	for i, row := range rows {
		questions[i] = Question{
			Text:          row.Text,
			Kind:          row.Kind,
			Options:       row.Options,
			CorrectAnswer: row.CorrectAnswer,
		}
	}
	return questions, nil
}
