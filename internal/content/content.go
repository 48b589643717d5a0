// Package content is the read-only source of question sequences for live
// sessions. It is consulted exactly once per session start; everything the
// coordinator needs afterwards lives in memory.
package content

import (
	"context"
	"errors"
)

// Question kinds.
const (
	KindSingleChoice = "single_choice"
	KindFreeResponse = "free_response"
)

// ErrNotFound indicates no question sequence exists for the session ID.
var ErrNotFound = errors.New("question sequence not found")

// Question is immutable for the duration of a session.
type Question struct {
	Text          string   `json:"text"`
	Kind          string   `json:"kind"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Loader supplies the ordered question sequence for a session identifier.
type Loader interface {
	LoadQuestions(ctx context.Context, sessionID string) ([]Question, error)
}
