package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Session errors
	ErrCodeSessionNotFound   = "session_not_found"
	ErrCodeSessionNotStarted = "session_not_started"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeStartFailed       = "start_failed"
	ErrCodeJoinFailed        = "join_failed"
	ErrCodeSubmitFailed      = "submit_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
