package session

import "fmt"

// applyLocked advances the state machine for one presenter control action.
// Caller holds s.mu. An action that is not valid from the current phase
// returns ErrInvalidTransition and leaves the session untouched.
//
//	end_question   question            -> locked
//	reveal_answer  locked              -> revealed
//	next_question  revealed, not last  -> question, index+1
//	finish         revealed, last      -> finished
//	force_finish   any non-finished    -> finished
func (s *Session) applyLocked(action string) error {
	switch action {
	case ActionEndQuestion:
		if s.phase != PhaseQuestion {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, s.phase)
		}
		s.phase = PhaseLocked

	case ActionReveal:
		if s.phase != PhaseLocked {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, s.phase)
		}
		s.phase = PhaseRevealed

	case ActionNext:
		if s.phase != PhaseRevealed {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, s.phase)
		}
		if s.currentIndex+1 >= len(s.questions) {
			return fmt.Errorf("%w: already on last question", ErrInvalidTransition)
		}
		s.currentIndex++
		s.phase = PhaseQuestion

	case ActionFinish:
		if s.phase != PhaseRevealed || s.currentIndex+1 != len(s.questions) {
			return fmt.Errorf("%w: %s from %s at question %d/%d",
				ErrInvalidTransition, action, s.phase, s.currentIndex+1, len(s.questions))
		}
		s.phase = PhaseFinished

	case ActionForceFinish:
		if s.phase == PhaseFinished {
			return fmt.Errorf("%w: session already finished", ErrInvalidTransition)
		}
		s.phase = PhaseFinished

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	return nil
}
