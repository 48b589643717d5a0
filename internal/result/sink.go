package result

import (
	"context"

	"github.com/quizhall/quizhall/internal/db/repository"
)

// PostgresSink appends submissions to the results table.
type PostgresSink struct {
	repo *repository.ResultRepository
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink creates a Postgres-backed result sink.
func NewPostgresSink(repo *repository.ResultRepository) *PostgresSink {
	return &PostgresSink{repo: repo}
}

// RecordAnswer writes one result row.
func (s *PostgresSink) RecordAnswer(ctx context.Context, sub Submission) error {
	return s.repo.Insert(ctx, repository.ResultRow{
		ID:            sub.ID,
		QuizID:        sub.SessionID,
		ParticipantID: sub.ParticipantID,
		QuestionIndex: sub.QuestionIndex,
		Value:         sub.Value,
		IsCorrect:     sub.IsCorrect,
		SubmittedAt:   sub.SubmittedAt,
	})
}
