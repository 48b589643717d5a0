package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhall/quizhall/internal/content"
)

func twoQuestions() []content.Question {
	return []content.Question{
		{Text: "Capital of France?", Kind: content.KindSingleChoice, Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
		{Text: "2+2?", Kind: content.KindFreeResponse, CorrectAnswer: "4"},
	}
}

func TestApplyFullRun(t *testing.T) {
	s := newSession("quiz-1", twoQuestions())
	require.Equal(t, PhaseQuestion, s.phase)
	require.Equal(t, 0, s.currentIndex)

	steps := []struct {
		action    string
		wantPhase string
		wantIndex int
	}{
		{ActionEndQuestion, PhaseLocked, 0},
		{ActionReveal, PhaseRevealed, 0},
		{ActionNext, PhaseQuestion, 1},
		{ActionEndQuestion, PhaseLocked, 1},
		{ActionReveal, PhaseRevealed, 1},
		{ActionFinish, PhaseFinished, 1},
	}

	for _, step := range steps {
		require.NoError(t, s.applyLocked(step.action), "action %s", step.action)
		assert.Equal(t, step.wantPhase, s.phase)
		assert.Equal(t, step.wantIndex, s.currentIndex)
	}
}

func TestApplyRejectsWrongPhase(t *testing.T) {
	cases := []struct {
		name    string
		prepare []string
		action  string
	}{
		{"reveal before lock", nil, ActionReveal},
		{"next before reveal", nil, ActionNext},
		{"finish before reveal", nil, ActionFinish},
		{"double lock", []string{ActionEndQuestion}, ActionEndQuestion},
		{"next after lock", []string{ActionEndQuestion}, ActionNext},
		{"finish on first of two", []string{ActionEndQuestion, ActionReveal}, ActionFinish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession("quiz-1", twoQuestions())
			for _, a := range tc.prepare {
				require.NoError(t, s.applyLocked(a))
			}
			phase, index := s.phase, s.currentIndex

			err := s.applyLocked(tc.action)
			require.ErrorIs(t, err, ErrInvalidTransition)
			// rejected actions never mutate
			assert.Equal(t, phase, s.phase)
			assert.Equal(t, index, s.currentIndex)
		})
	}
}

func TestApplyNextOnLastQuestion(t *testing.T) {
	s := newSession("quiz-1", twoQuestions())
	for _, a := range []string{ActionEndQuestion, ActionReveal, ActionNext, ActionEndQuestion, ActionReveal} {
		require.NoError(t, s.applyLocked(a))
	}

	err := s.applyLocked(ActionNext)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, s.currentIndex)
	assert.Equal(t, PhaseRevealed, s.phase)
}

func TestApplyForceFinish(t *testing.T) {
	for _, prepare := range [][]string{
		nil,
		{ActionEndQuestion},
		{ActionEndQuestion, ActionReveal},
	} {
		s := newSession("quiz-1", twoQuestions())
		for _, a := range prepare {
			require.NoError(t, s.applyLocked(a))
		}
		require.NoError(t, s.applyLocked(ActionForceFinish))
		assert.Equal(t, PhaseFinished, s.phase)
	}
}

func TestApplyFinishedIsTerminal(t *testing.T) {
	s := newSession("quiz-1", twoQuestions())
	require.NoError(t, s.applyLocked(ActionForceFinish))

	for _, a := range []string{ActionEndQuestion, ActionReveal, ActionNext, ActionFinish, ActionForceFinish} {
		assert.ErrorIs(t, s.applyLocked(a), ErrInvalidTransition, "action %s", a)
	}
}

func TestApplyUnknownAction(t *testing.T) {
	s := newSession("quiz-1", twoQuestions())
	assert.ErrorIs(t, s.applyLocked("warp"), ErrInvalidTransition)
}
