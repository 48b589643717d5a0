// Package lifecycle publishes session start/finish events for the dashboard
// and CRUD layer that live outside the coordinator. The coordinator's own
// behavior never depends on these notifications.
package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhall/quizhall/internal/db/repository"
)

const defaultChannel = "session:lifecycle"

// Event states published on the lifecycle channel.
const (
	StateActive    = "active"
	StateCompleted = "completed"
)

// Event is the payload published on session start and finish.
type Event struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	At        time.Time `json:"at"`
}

// Notifier mirrors session status into the quizzes table and announces
// transitions over Redis Pub/Sub.
type Notifier struct {
	repo    *repository.QuizRepository
	redis   *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewNotifier creates a lifecycle notifier. repo and redis may each be nil,
// in which case that side is skipped.
func NewNotifier(repo *repository.QuizRepository, rdb *redis.Client, channel string, logger zerolog.Logger) *Notifier {
	if channel == "" {
		channel = defaultChannel
	}
	return &Notifier{
		repo:    repo,
		redis:   rdb,
		channel: channel,
		logger:  logger.With().Str("component", "lifecycle_notifier").Logger(),
	}
}

// SessionStarted marks the quiz active.
func (n *Notifier) SessionStarted(ctx context.Context, sessionID string) {
	n.notify(ctx, sessionID, StateActive, repository.QuizStatusActive)
}

// SessionFinished marks the quiz completed.
func (n *Notifier) SessionFinished(ctx context.Context, sessionID string) {
	n.notify(ctx, sessionID, StateCompleted, repository.QuizStatusCompleted)
}

func (n *Notifier) notify(ctx context.Context, sessionID, state, status string) {
	if n.repo != nil {
		if err := n.repo.UpdateStatus(ctx, sessionID, status); err != nil {
			n.logger.Warn().Err(err).Str("session_id", sessionID).Msg("quiz status update failed")
		}
	}

	if n.redis == nil {
		return
	}
	payload, err := json.Marshal(Event{SessionID: sessionID, State: state, At: time.Now().UTC()})
	if err != nil {
		n.logger.Warn().Err(err).Msg("marshal lifecycle event")
		return
	}
	if err := n.redis.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Warn().Err(err).Str("session_id", sessionID).Msg("lifecycle publish failed")
	}
}
