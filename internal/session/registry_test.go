package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateOrResetReplaces(t *testing.T) {
	r := NewRegistry()

	first := r.CreateOrReset("quiz-1", twoQuestions())
	first.mu.Lock()
	first.tally[0] = map[string]struct{}{"p1": {}}
	first.mu.Unlock()

	second := r.CreateOrReset("quiz-1", twoQuestions())
	require.NotSame(t, first, second)

	got, err := r.Get("quiz-1")
	require.NoError(t, err)
	assert.Same(t, second, got)

	got.mu.Lock()
	assert.Empty(t, got.tally)
	assert.Equal(t, 0, got.currentIndex)
	got.mu.Unlock()
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.CreateOrReset("quiz-1", twoQuestions())
	require.Equal(t, 1, r.Len())

	r.Remove("quiz-1")
	assert.Equal(t, 0, r.Len())
	_, err := r.Get("quiz-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryConcurrentCreateSingleWinner(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CreateOrReset("quiz-1", twoQuestions())
		}()
	}
	wg.Wait()

	require.Equal(t, 1, r.Len())
	sess, err := r.Get("quiz-1")
	require.NoError(t, err)

	// whichever call won, the visible session is a coherent fresh one
	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.Equal(t, PhaseQuestion, sess.phase)
	assert.Equal(t, 0, sess.currentIndex)
	assert.Len(t, sess.questions, 2)
	assert.Empty(t, sess.tally)
	assert.Empty(t, sess.members)
}
