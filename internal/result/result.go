// Package result is the durable, append-only log of accepted answers. The
// coordinator records through it fire-and-forget; delivery is asynchronous
// but never silently dropped without a retry and a logged failure.
package result

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Submission is one accepted answer bound for the durable log.
type Submission struct {
	ID            uuid.UUID
	SessionID     string
	ParticipantID string
	QuestionIndex int
	Value         string
	IsCorrect     bool
	SubmittedAt   time.Time
}

// Sink durably records an accepted answer.
type Sink interface {
	RecordAnswer(ctx context.Context, sub Submission) error
}
