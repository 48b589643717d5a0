package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhall/quizhall/internal/content"
	"github.com/quizhall/quizhall/internal/result"
	"github.com/quizhall/quizhall/pkg/http/ws"
)

type stubLoader struct {
	packs map[string][]content.Question
	calls int
}

func (l *stubLoader) LoadQuestions(_ context.Context, sessionID string) ([]content.Question, error) {
	l.calls++
	pack, ok := l.packs[sessionID]
	if !ok {
		return nil, content.ErrNotFound
	}
	return pack, nil
}

type recordingSink struct {
	mu   sync.Mutex
	subs []result.Submission
	err  error
}

func (s *recordingSink) RecordAnswer(_ context.Context, sub result.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *recordingSink) recorded() []result.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]result.Submission, len(s.subs))
	copy(out, s.subs)
	return out
}

type stubNotifier struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (n *stubNotifier) SessionStarted(_ context.Context, sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, sessionID)
}

func (n *stubNotifier) SessionFinished(_ context.Context, sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, sessionID)
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	rooms map[string][]ws.Message
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{rooms: make(map[string][]ws.Message)}
}

func (b *recordingBroadcaster) BroadcastToRoom(sessionID string, msg ws.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[sessionID] = append(b.rooms[sessionID], msg)
	return nil
}

func (b *recordingBroadcaster) CloseRoom(string) {}

func (b *recordingBroadcaster) messages(sessionID string) []ws.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ws.Message, len(b.rooms[sessionID]))
	copy(out, b.rooms[sessionID])
	return out
}

func (b *recordingBroadcaster) countType(sessionID, msgType string) int {
	n := 0
	for _, msg := range b.messages(sessionID) {
		if msg.Type == msgType {
			n++
		}
	}
	return n
}

func newTestService(packs map[string][]content.Question) (*Service, *recordingSink, *stubNotifier, *recordingBroadcaster) {
	sink := &recordingSink{}
	notifier := &stubNotifier{}
	bcast := newRecordingBroadcaster()
	svc := NewService(NewRegistry(), &stubLoader{packs: packs}, sink, notifier, bcast, zerolog.Nop())
	return svc, sink, notifier, bcast
}

func onePack(id string) map[string][]content.Question {
	return map[string][]content.Question{id: twoQuestions()}
}

func TestStartInitializesSession(t *testing.T) {
	svc, _, notifier, bcast := newTestService(onePack("quiz-1"))

	snap, err := svc.Start(context.Background(), "quiz-1")
	require.NoError(t, err)

	assert.Equal(t, PhaseQuestion, snap.Phase)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, 2, snap.QuestionCount)
	assert.Equal(t, []string{"quiz-1"}, notifier.started)
	assert.Equal(t, 1, bcast.countType("quiz-1", ws.TypeSessionState))
}

func TestStartUnknownQuiz(t *testing.T) {
	svc, _, notifier, bcast := newTestService(nil)

	_, err := svc.Start(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, notifier.started)
	assert.Empty(t, bcast.messages("ghost"))
}

// Full presenter run over a two-question quiz, including rejection of a
// submission after the question is locked and terminal behavior after finish.
func TestFullSessionRun(t *testing.T) {
	ctx := context.Background()
	svc, sink, notifier, _ := newTestService(onePack("quiz-1"))

	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	out, err := svc.Submit(ctx, "quiz-1", "p1", 0, "Paris")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.True(t, out.IsCorrect)
	assert.Equal(t, 1, out.AnsweredCount)

	recorded := sink.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "quiz-1", recorded[0].SessionID)
	assert.Equal(t, "p1", recorded[0].ParticipantID)
	assert.True(t, recorded[0].IsCorrect)

	snap, err := svc.Control(ctx, "quiz-1", ActionEndQuestion)
	require.NoError(t, err)
	assert.Equal(t, PhaseLocked, snap.Phase)

	_, err = svc.Submit(ctx, "quiz-1", "p2", 0, "Lyon")
	require.ErrorIs(t, err, ErrInvalidTransition)

	snap, err = svc.Control(ctx, "quiz-1", ActionReveal)
	require.NoError(t, err)
	assert.Equal(t, PhaseRevealed, snap.Phase)

	snap, err = svc.Control(ctx, "quiz-1", ActionNext)
	require.NoError(t, err)
	assert.Equal(t, PhaseQuestion, snap.Phase)
	assert.Equal(t, 1, snap.QuestionIndex)

	_, err = svc.Control(ctx, "quiz-1", ActionEndQuestion)
	require.NoError(t, err)
	_, err = svc.Control(ctx, "quiz-1", ActionReveal)
	require.NoError(t, err)
	snap, err = svc.Control(ctx, "quiz-1", ActionFinish)
	require.NoError(t, err)
	assert.Equal(t, PhaseFinished, snap.Phase)
	assert.Equal(t, []string{"quiz-1"}, notifier.finished)

	_, err = svc.Control(ctx, "quiz-1", ActionEndQuestion)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// a fresh start resets everything
	snap, err = svc.Start(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseQuestion, snap.Phase)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, 0, snap.AnsweredCount)
	assert.Equal(t, 0, snap.MemberCount)
}

func TestSubmitDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, sink, _, bcast := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	first, err := svc.Submit(ctx, "quiz-1", "p1", 0, "Paris")
	require.NoError(t, err)
	assert.True(t, first.Accepted)

	second, err := svc.Submit(ctx, "quiz-1", "p1", 0, "Lyon")
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 1, second.AnsweredCount)

	// exactly one durable write and one progress broadcast
	assert.Len(t, sink.recorded(), 1)
	assert.Equal(t, 1, bcast.countType("quiz-1", ws.TypeProgressUpdate))
}

func TestSubmitWrongIndex(t *testing.T) {
	ctx := context.Background()
	svc, sink, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "quiz-1", "p1", 1, "4")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, sink.recorded())
}

func TestSubmitUnknownSession(t *testing.T) {
	svc, sink, _, bcast := newTestService(nil)

	_, err := svc.Submit(context.Background(), "ghost", "p1", 0, "x")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, sink.recorded())
	assert.Empty(t, bcast.messages("ghost"))
}

func TestJoinIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	snap, err := svc.Join(ctx, "quiz-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MemberCount)

	snap, err = svc.Join(ctx, "quiz-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MemberCount)
}

func TestJoinNeverStartsSession(t *testing.T) {
	svc, _, _, _ := newTestService(onePack("quiz-1"))

	_, err := svc.Join(context.Background(), "quiz-1", "p1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Snapshot("quiz-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLeaveKeepsSubmissions(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "quiz-1", "p1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "quiz-1", "p1", 0, "Paris")
	require.NoError(t, err)

	svc.Leave("quiz-1", "p1")

	snap, err := svc.Snapshot("quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.MemberCount)
	assert.Equal(t, 1, snap.AnsweredCount, "disconnect must not revoke answers")
}

// A participant joining after N control actions sees exactly the state those
// actions produced, with no dependence on prior broadcasts.
func TestLateJoinSnapshot(t *testing.T) {
	ctx := context.Background()
	actions := []string{ActionEndQuestion, ActionReveal, ActionNext}

	svc, _, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "quiz-1", "early", 0, "Paris")
	require.NoError(t, err)
	for _, a := range actions {
		_, err = svc.Control(ctx, "quiz-1", a)
		require.NoError(t, err)
	}

	snap, err := svc.Join(ctx, "quiz-1", "late")
	require.NoError(t, err)

	// replay the same actions on a fresh coordinator
	replay, _, _, _ := newTestService(onePack("quiz-1"))
	_, err = replay.Start(ctx, "quiz-1")
	require.NoError(t, err)
	_, err = replay.Submit(ctx, "quiz-1", "early", 0, "Paris")
	require.NoError(t, err)
	for _, a := range actions {
		_, err = replay.Control(ctx, "quiz-1", a)
		require.NoError(t, err)
	}
	want, err := replay.Join(ctx, "quiz-1", "late")
	require.NoError(t, err)

	assert.Equal(t, want, snap)
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, bcast := newTestService(map[string][]content.Question{
		"quiz-a": twoQuestions(),
		"quiz-b": twoQuestions(),
	})
	_, err := svc.Start(ctx, "quiz-a")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "quiz-b")
	require.NoError(t, err)

	before := len(bcast.messages("quiz-b"))
	_, err = svc.Submit(ctx, "quiz-a", "p1", 0, "Paris")
	require.NoError(t, err)
	_, err = svc.Control(ctx, "quiz-a", ActionEndQuestion)
	require.NoError(t, err)

	assert.Len(t, bcast.messages("quiz-b"), before, "session B room must not see session A traffic")

	snapB, err := svc.Snapshot("quiz-b")
	require.NoError(t, err)
	assert.Equal(t, PhaseQuestion, snapB.Phase)
	assert.Equal(t, 0, snapB.AnsweredCount)
}

func TestSinkFailureDoesNotAffectLivePath(t *testing.T) {
	ctx := context.Background()
	svc, sink, _, bcast := newTestService(onePack("quiz-1"))
	sink.err = errors.New("sink down")

	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	out, err := svc.Submit(ctx, "quiz-1", "p1", 0, "Paris")
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, 1, bcast.countType("quiz-1", ws.TypeProgressUpdate))

	snap, err := svc.Snapshot("quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.AnsweredCount)
}

func TestForceFinish(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	snap, err := svc.Control(ctx, "quiz-1", ActionForceFinish)
	require.NoError(t, err)
	assert.Equal(t, PhaseFinished, snap.Phase)
	assert.Equal(t, []string{"quiz-1"}, notifier.finished)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	svc.Remove("quiz-1")
	_, err = svc.Snapshot("quiz-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStatePayloadHidesAnswerUntilReveal(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(onePack("quiz-1"))

	snap, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Empty(t, StatePayload(snap).Question.CorrectAnswer)

	_, err = svc.Control(ctx, "quiz-1", ActionEndQuestion)
	require.NoError(t, err)
	snap, err = svc.Control(ctx, "quiz-1", ActionReveal)
	require.NoError(t, err)
	assert.Equal(t, "Paris", StatePayload(snap).Question.CorrectAnswer)
}

func TestConcurrentSubmissionsSameQuestion(t *testing.T) {
	ctx := context.Background()
	svc, sink, _, _ := newTestService(onePack("quiz-1"))
	_, err := svc.Start(ctx, "quiz-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		id := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each participant submits twice; only the first may count
			svc.Submit(ctx, "quiz-1", id, 0, "Paris")
			svc.Submit(ctx, "quiz-1", id, 0, "Paris")
		}()
	}
	wg.Wait()

	snap, err := svc.Snapshot("quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 16, snap.AnsweredCount)
	assert.Len(t, sink.recorded(), 16)
}
