package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRow is one accepted answer, appended to the durable results log.
type ResultRow struct {
	ID            uuid.UUID
	QuizID        string
	ParticipantID string
	QuestionIndex int
	Value         string
	IsCorrect     bool
	SubmittedAt   time.Time
}

// ResultRepository appends accepted answers to Postgres.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository constructs a result repository over a pgx pool.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert appends one result row. The unique constraint on
// (quiz_id, participant_id, question_index) backs up the in-memory
// at-most-once check, so a retried write can never double-log.
func (r *ResultRepository) Insert(ctx context.Context, row ResultRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results (id, quiz_id, participant_id, question_index, value, is_correct, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (quiz_id, participant_id, question_index) DO NOTHING`,
		row.ID, row.QuizID, row.ParticipantID, row.QuestionIndex, row.Value, row.IsCorrect, row.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
