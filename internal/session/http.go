package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/quizhall/quizhall/pkg/http/errors"
)

// HTTPHandler serves read-only session status for the dashboard layer, plus
// explicit eviction of finished sessions.
type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandler creates REST handlers for session status.
func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// HandleGet serves GET /v1/sessions/{id}: the current snapshot.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "Missing session id")
		return
	}

	snap, err := h.service.Snapshot(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
			return
		}
		httperrors.RespondInternalError(w, "Failed to load session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(StatePayload(snap)); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("encode session snapshot")
	}
}

// HandleRemove serves DELETE /v1/sessions/{id}: explicit registry eviction.
// Finishing a session does not evict it; the surrounding deployment decides
// when a finished session's entry goes away.
func (h *HTTPHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "Missing session id")
		return
	}

	if _, err := h.service.Snapshot(sessionID); err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}

	h.service.Remove(sessionID)
	h.logger.Info().Str("session_id", sessionID).Msg("session removed")
	w.WriteHeader(http.StatusNoContent)
}
