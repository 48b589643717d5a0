package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhall/quizhall/internal/content"
	"github.com/quizhall/quizhall/internal/result"
	"github.com/quizhall/quizhall/pkg/http/ws"
)

// Notifier receives session lifecycle transitions for the out-of-scope
// dashboard layer. Implementations log their own failures; the coordinator
// never depends on delivery.
type Notifier interface {
	SessionStarted(ctx context.Context, sessionID string)
	SessionFinished(ctx context.Context, sessionID string)
}

// Broadcaster delivers messages to a session's room. Sends must not block;
// the hub's buffered per-connection queues satisfy this.
type Broadcaster interface {
	BroadcastToRoom(sessionID string, msg ws.Message) error
	CloseRoom(sessionID string)
}

// SubmitOutcome reports how a submission was handled.
type SubmitOutcome struct {
	Accepted      bool
	Duplicate     bool
	IsCorrect     bool
	AnsweredCount int
}

// Service coordinates live sessions: it validates every inbound event
// against the state machine, mutates state, writes through to the result
// sink, and broadcasts the resulting snapshot.
type Service struct {
	registry    *Registry
	loader      content.Loader
	sink        result.Sink
	notifier    Notifier
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates the session coordinator.
func NewService(registry *Registry, loader content.Loader, sink result.Sink, notifier Notifier, broadcaster Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		registry:    registry,
		loader:      loader,
		sink:        sink,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "session_service").Logger(),
	}
}

// Start loads the question sequence and installs a fresh session, discarding
// any prior run of the same ID. The session only becomes visible to joiners
// once its questions are loaded.
func (s *Service) Start(ctx context.Context, sessionID string) (Snapshot, error) {
	questions, err := s.loader.LoadQuestions(ctx, sessionID)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("%w: no questions for %s", ErrSessionNotFound, sessionID)
		}
		return Snapshot{}, fmt.Errorf("load questions: %w", err)
	}

	sess := s.registry.CreateOrReset(sessionID, questions)
	liveSessions.Set(float64(s.registry.Len()))

	if s.notifier != nil {
		s.notifier.SessionStarted(ctx, sessionID)
	}

	sess.mu.Lock()
	snap := sess.snapshotLocked()
	s.broadcastState(snap)
	sess.mu.Unlock()

	s.logger.Info().
		Str("session_id", sessionID).
		Int("question_count", len(questions)).
		Msg("session started")

	return snap, nil
}

// Control applies one presenter action. An action received in the wrong
// phase is rejected and reported to the caller; nothing is broadcast.
func (s *Service) Control(ctx context.Context, sessionID, action string) (Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	if err := sess.applyLocked(action); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	snap := sess.snapshotLocked()
	s.broadcastState(snap)
	sess.mu.Unlock()

	s.logger.Info().
		Str("session_id", sessionID).
		Str("action", action).
		Str("phase", snap.Phase).
		Int("question_index", snap.QuestionIndex).
		Msg("control action applied")

	if snap.Phase == PhaseFinished && s.notifier != nil {
		s.notifier.SessionFinished(ctx, sessionID)
	}
	return snap, nil
}

// Join adds a participant's presence and returns the current snapshot, so a
// late joiner can render correct UI without having observed any prior
// broadcast. Joining never starts a session.
func (s *Service) Join(ctx context.Context, sessionID, participantID string) (Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	sess.members[participantID] = struct{}{}
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	return snap, nil
}

// Leave removes presence only. Previously accepted submissions stay counted.
func (s *Service) Leave(sessionID, participantID string) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return
	}

	sess.mu.Lock()
	delete(sess.members, participantID)
	sess.mu.Unlock()
}

// Submit handles one participant answer. The tally check happens before the
// durable write and the broadcast, so a duplicate produces neither. Accepted
// submissions broadcast the updated progress count only, never the answer.
func (s *Service) Submit(ctx context.Context, sessionID, participantID string, questionIndex int, value string) (SubmitOutcome, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		submissionsTotal.WithLabelValues("unknown_session").Inc()
		return SubmitOutcome{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.phase != PhaseQuestion {
		submissionsTotal.WithLabelValues("rejected").Inc()
		return SubmitOutcome{}, fmt.Errorf("%w: submissions closed in phase %s", ErrInvalidTransition, sess.phase)
	}
	if questionIndex != sess.currentIndex {
		submissionsTotal.WithLabelValues("rejected").Inc()
		return SubmitOutcome{}, fmt.Errorf("%w: question %d is not current", ErrInvalidTransition, questionIndex)
	}

	answered := sess.tally[questionIndex]
	if answered == nil {
		answered = make(map[string]struct{})
		sess.tally[questionIndex] = answered
	}
	if _, dup := answered[participantID]; dup {
		submissionsTotal.WithLabelValues("duplicate").Inc()
		return SubmitOutcome{Duplicate: true, AnsweredCount: len(answered)}, nil
	}

	isCorrect := value == sess.questions[questionIndex].CorrectAnswer
	answered[participantID] = struct{}{}

	sub := result.Submission{
		ID:            uuid.New(),
		SessionID:     sessionID,
		ParticipantID: participantID,
		QuestionIndex: questionIndex,
		Value:         value,
		IsCorrect:     isCorrect,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := s.sink.RecordAnswer(ctx, sub); err != nil {
		// live tally and broadcast proceed regardless; the sink logs and
		// retries on its own
		s.logger.Warn().Err(err).
			Str("session_id", sessionID).
			Str("participant_id", participantID).
			Msg("result sink rejected submission")
	}

	count := len(answered)
	s.broadcastProgress(sessionID, questionIndex, count)
	submissionsTotal.WithLabelValues("accepted").Inc()

	return SubmitOutcome{Accepted: true, IsCorrect: isCorrect, AnsweredCount: count}, nil
}

// Snapshot returns the current derived view without mutating anything.
func (s *Service) Snapshot(sessionID string) (Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Remove evicts a session from the registry and closes its room.
func (s *Service) Remove(sessionID string) {
	s.registry.Remove(sessionID)
	s.broadcaster.CloseRoom(sessionID)
	liveSessions.Set(float64(s.registry.Len()))
}

func (s *Service) broadcastState(snap Snapshot) {
	payload, err := json.Marshal(StatePayload(snap))
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal session state")
		return
	}
	if err := s.broadcaster.BroadcastToRoom(snap.SessionID, ws.Message{Type: ws.TypeSessionState, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", snap.SessionID).Msg("state broadcast incomplete")
	}
}

func (s *Service) broadcastProgress(sessionID string, questionIndex, count int) {
	payload, _ := json.Marshal(ws.ProgressUpdatePayload{
		SessionID:     sessionID,
		QuestionIndex: questionIndex,
		AnsweredCount: count,
	})
	if err := s.broadcaster.BroadcastToRoom(sessionID, ws.Message{Type: ws.TypeProgressUpdate, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("progress broadcast incomplete")
	}
}

// StatePayload projects a snapshot onto the wire shape. The correct answer
// travels only once the presenter has disclosed it.
func StatePayload(snap Snapshot) ws.SessionStatePayload {
	view := &ws.QuestionView{
		Text:    snap.Question.Text,
		Kind:    snap.Question.Kind,
		Options: snap.Question.Options,
	}
	if snap.Phase == PhaseRevealed || snap.Phase == PhaseFinished {
		view.CorrectAnswer = snap.Question.CorrectAnswer
	}

	return ws.SessionStatePayload{
		SessionID:     snap.SessionID,
		Phase:         snap.Phase,
		QuestionIndex: snap.QuestionIndex,
		QuestionCount: snap.QuestionCount,
		AnsweredCount: snap.AnsweredCount,
		MemberCount:   snap.MemberCount,
		Question:      view,
	}
}
