package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/quizhall/quizhall/pkg/http/errors"
	"github.com/quizhall/quizhall/pkg/http/ws"
)

// Handler routes session WebSocket messages to the coordinator.
type Handler struct {
	service  *Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a session WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger,
	}
}

// connState tracks what one socket has joined, so a disconnect can drop
// presence without revoking the participant's recorded answers.
type connState struct {
	joined map[string]string // session_id -> participant_id
}

// HandleConnection processes a new WebSocket connection until it closes.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	clientID := uuid.NewString()
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(clientID, wsConn)

	go wsConn.WritePump()

	st := &connState{joined: make(map[string]string)}
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), clientID, st, msg)
	})

	for sessionID, participantID := range st.joined {
		h.service.Leave(sessionID, participantID)
	}
	h.hub.UnregisterConnection(clientID)
}

// handleMessage routes one inbound message.
func (h *Handler) handleMessage(ctx context.Context, clientID string, st *connState, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeStartSession:
		return h.handleStart(ctx, clientID, msg.Payload)
	case ws.TypeEndQuestion:
		return h.handleControl(ctx, clientID, msg.Payload, ActionEndQuestion)
	case ws.TypeRevealAnswer:
		return h.handleControl(ctx, clientID, msg.Payload, ActionReveal)
	case ws.TypeNextQuestion:
		return h.handleControl(ctx, clientID, msg.Payload, ActionNext)
	case ws.TypeFinish:
		return h.handleFinish(ctx, clientID, msg.Payload)
	case ws.TypeJoinSession:
		return h.handleJoin(ctx, clientID, st, msg.Payload)
	case ws.TypeLeaveSession:
		return h.handleLeave(clientID, st, msg.Payload)
	case ws.TypeSubmitAnswer:
		return h.handleSubmit(ctx, clientID, st, msg.Payload)
	default:
		return h.sendError(clientID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleStart(ctx context.Context, clientID string, payload json.RawMessage) error {
	var req ws.StartSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid start_session payload")
	}

	// presenter enters the room first so it observes its own start snapshot
	h.hub.JoinRoom(req.SessionID, clientID)

	if _, err := h.service.Start(ctx, req.SessionID); err != nil {
		h.hub.LeaveRoom(req.SessionID, clientID)
		if errors.Is(err, ErrSessionNotFound) {
			return h.sendError(clientID, httperrors.ErrCodeSessionNotFound, err.Error())
		}
		return h.sendError(clientID, httperrors.ErrCodeStartFailed, err.Error())
	}
	return nil
}

func (h *Handler) handleControl(ctx context.Context, clientID string, payload json.RawMessage, action string) error {
	var req ws.ControlPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid control payload")
	}

	if _, err := h.service.Control(ctx, req.SessionID, action); err != nil {
		return h.sendControlError(clientID, err)
	}
	return nil
}

func (h *Handler) handleFinish(ctx context.Context, clientID string, payload json.RawMessage) error {
	var req ws.FinishPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid finish_session payload")
	}

	action := ActionFinish
	if req.Force {
		action = ActionForceFinish
	}
	if _, err := h.service.Control(ctx, req.SessionID, action); err != nil {
		return h.sendControlError(clientID, err)
	}
	return nil
}

func (h *Handler) handleJoin(ctx context.Context, clientID string, st *connState, payload json.RawMessage) error {
	var req ws.JoinSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" || req.ParticipantID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid join_session payload")
	}

	// room membership precedes the snapshot send: a broadcast slipping in
	// between is harmless because the snapshot supersedes it
	h.hub.JoinRoom(req.SessionID, clientID)

	snap, err := h.service.Join(ctx, req.SessionID, req.ParticipantID)
	if err != nil {
		h.hub.LeaveRoom(req.SessionID, clientID)
		return h.sendError(clientID, httperrors.ErrCodeSessionNotStarted, "Session has not started")
	}

	st.joined[req.SessionID] = req.ParticipantID

	data, _ := json.Marshal(StatePayload(snap))
	return h.hub.SendToClient(clientID, ws.Message{Type: ws.TypeSessionState, Payload: data})
}

func (h *Handler) handleLeave(clientID string, st *connState, payload json.RawMessage) error {
	var req ws.LeaveSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid leave_session payload")
	}

	if participantID, ok := st.joined[req.SessionID]; ok {
		h.service.Leave(req.SessionID, participantID)
		delete(st.joined, req.SessionID)
	}
	h.hub.LeaveRoom(req.SessionID, clientID)
	return nil
}

func (h *Handler) handleSubmit(ctx context.Context, clientID string, st *connState, payload json.RawMessage) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload")
	}

	participantID := req.ParticipantID
	if participantID == "" {
		participantID = st.joined[req.SessionID]
	}
	if participantID == "" {
		return h.sendError(clientID, httperrors.ErrCodeInvalidPayload, "Missing participant_id")
	}

	outcome, err := h.service.Submit(ctx, req.SessionID, participantID, req.QuestionIndex, req.Value)
	if err != nil {
		return h.sendControlError(clientID, err)
	}

	ack := ws.SubmitAckPayload{
		SessionID:     req.SessionID,
		QuestionIndex: req.QuestionIndex,
		Accepted:      true,
		Duplicate:     outcome.Duplicate,
	}
	data, _ := json.Marshal(ack)
	return h.hub.SendToClient(clientID, ws.Message{Type: ws.TypeSubmitAck, Payload: data})
}

func (h *Handler) sendControlError(clientID string, err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return h.sendError(clientID, httperrors.ErrCodeSessionNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return h.sendError(clientID, httperrors.ErrCodeInvalidTransition, err.Error())
	default:
		return h.sendError(clientID, httperrors.ErrCodeInternalError, err.Error())
	}
}

func (h *Handler) sendError(clientID, code, message string) error {
	payload, _ := json.Marshal(ws.ErrorPayload{Code: code, Message: message})
	return h.hub.SendToClient(clientID, ws.Message{Type: ws.TypeError, Payload: payload})
}
