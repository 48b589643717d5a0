package ws

import "encoding/json"

// MessageType constants for the session WebSocket protocol.
const (
	// Client -> Server (presenter controls)
	TypeStartSession = "start_session"
	TypeEndQuestion  = "end_question"
	TypeRevealAnswer = "reveal_answer"
	TypeNextQuestion = "next_question"
	TypeFinish       = "finish_session"

	// Client -> Server (participants)
	TypeJoinSession  = "join_session"
	TypeLeaveSession = "leave_session"
	TypeSubmitAnswer = "submit_answer"

	// Server -> Client
	TypeSessionState   = "session_state"
	TypeProgressUpdate = "progress_update"
	TypeSubmitAck      = "submit_ack"
	TypeError          = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client messages (incoming)

type StartSessionPayload struct {
	SessionID string `json:"session_id"`
}

type ControlPayload struct {
	SessionID string `json:"session_id"`
}

type FinishPayload struct {
	SessionID string `json:"session_id"`
	Force     bool   `json:"force,omitempty"`
}

type JoinSessionPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type LeaveSessionPayload struct {
	SessionID string `json:"session_id"`
}

type SubmitAnswerPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	QuestionIndex int    `json:"question_index"`
	Value         string `json:"value"`
}

// Server messages (outgoing)

// SessionStatePayload is the authoritative snapshot broadcast to the room.
// Clients rebuild their entire view from it; nothing incremental is sent.
type SessionStatePayload struct {
	SessionID     string        `json:"session_id"`
	Phase         string        `json:"phase"`
	QuestionIndex int           `json:"question_index"`
	QuestionCount int           `json:"question_count"`
	AnsweredCount int           `json:"answered_count"`
	MemberCount   int           `json:"member_count"`
	Question      *QuestionView `json:"question,omitempty"`
}

// QuestionView is the client-facing projection of the current question.
// CorrectAnswer is populated only once the presenter has revealed it.
type QuestionView struct {
	Text          string   `json:"text"`
	Kind          string   `json:"kind"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

type ProgressUpdatePayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	AnsweredCount int    `json:"answered_count"`
}

type SubmitAckPayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	Accepted      bool   `json:"accepted"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
