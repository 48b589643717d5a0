package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Quiz status values mirrored in the quizzes table for the dashboard layer.
const (
	QuizStatusDraft     = "draft"
	QuizStatusActive    = "active"
	QuizStatusCompleted = "completed"
)

// QuestionRow is one question of a quiz, ordered by position.
type QuestionRow struct {
	Text          string
	Kind          string
	Options       []string
	CorrectAnswer string
}

// QuizRepository reads the question bank and writes display-only quiz status.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository constructs a quiz repository over a pgx pool.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetQuestions returns the quiz's questions in presentation order.
func (r *QuizRepository) GetQuestions(ctx context.Context, quizID string) ([]QuestionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT text, kind, options, correct_answer
		 FROM questions
		 WHERE quiz_id = $1
		 ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionRow
	for rows.Next() {
		var q QuestionRow
		if err := rows.Scan(&q.Text, &q.Kind, &q.Options, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// UpdateStatus writes the quiz's display status (active/completed).
func (r *QuizRepository) UpdateStatus(ctx context.Context, quizID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $2, updated_at = now() WHERE id = $1`, quizID, status)
	if err != nil {
		return fmt.Errorf("update quiz status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quiz %s not found", quizID)
	}
	return nil
}
