package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = 5 * time.Minute

// CachedLoader wraps a Loader with Redis-backed caching so repeated session
// starts (a presenter re-running the same quiz) skip the question bank.
type CachedLoader struct {
	inner  Loader
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Loader = (*CachedLoader)(nil)

func NewCachedLoader(inner Loader, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedLoader {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedLoader{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "content_cache").Logger(),
	}
}

func (c *CachedLoader) key(sessionID string) string {
	return "content:questions:" + sessionID
}

// LoadQuestions returns the cached sequence when present, falling back to the
// inner loader. Cache failures degrade to a direct load, never an error.
func (c *CachedLoader) LoadQuestions(ctx context.Context, sessionID string) ([]Question, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if err == nil {
		var questions []Question
		if err := json.Unmarshal(data, &questions); err == nil && len(questions) > 0 {
			return questions, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache read failed")
	}

	questions, err := c.inner.LoadQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(questions); err == nil {
		if err := c.client.Set(ctx, c.key(sessionID), data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache write failed")
		}
	}
	return questions, nil
}

// Invalidate drops the cached sequence, used when the quiz content changes.
func (c *CachedLoader) Invalidate(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
