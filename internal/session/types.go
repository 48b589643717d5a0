package session

import (
	"errors"
	"sync"

	"github.com/quizhall/quizhall/internal/content"
)

// Phase values for the session control protocol.
const (
	PhaseQuestion = "question" // accepting submissions for the current index
	PhaseLocked   = "locked"   // submissions closed, answer not yet disclosed
	PhaseRevealed = "revealed" // answer disclosed for the current question
	PhaseFinished = "finished" // terminal
)

// Control actions, all presenter-driven.
const (
	ActionEndQuestion = "end_question"
	ActionReveal      = "reveal_answer"
	ActionNext        = "next_question"
	ActionFinish      = "finish"
	ActionForceFinish = "force_finish"
)

var (
	// ErrSessionNotFound is returned for any operation referencing an
	// unknown session ID. Joining never creates a session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when a control action or submission
	// is not valid in the session's current phase.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Session is one live quiz run. All fields are guarded by mu; the service
// holds the lock across a mutation and its broadcast so every member of the
// room observes snapshots in production order.
type Session struct {
	mu sync.Mutex

	id           string
	questions    []content.Question
	currentIndex int
	phase        string
	tally        map[int]map[string]struct{} // question index -> participant set
	members      map[string]struct{}
}

func newSession(id string, questions []content.Question) *Session {
	return &Session{
		id:           id,
		questions:    questions,
		currentIndex: 0,
		phase:        PhaseQuestion,
		tally:        make(map[int]map[string]struct{}),
		members:      make(map[string]struct{}),
	}
}

// Snapshot is the full derived view of a session, sufficient on its own to
// render a correct client UI. No client-held state is authoritative.
type Snapshot struct {
	SessionID     string
	Phase         string
	QuestionIndex int
	QuestionCount int
	AnsweredCount int
	MemberCount   int
	Question      content.Question
}

// snapshotLocked derives the snapshot. Caller holds s.mu.
func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:     s.id,
		Phase:         s.phase,
		QuestionIndex: s.currentIndex,
		QuestionCount: len(s.questions),
		AnsweredCount: len(s.tally[s.currentIndex]),
		MemberCount:   len(s.members),
		Question:      s.questions[s.currentIndex],
	}
}
