package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotInRoom    = "not_in_room"
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeEmptyMessage = "empty_message"
	ErrCodeStorage      = "storage_error"
	ErrCodeBadRequest   = "bad_request"

	// Call-related error codes
	ErrCodeCallsDisabled = "calls_disabled"
	ErrCodeCallNotFound  = "call_not_found"
	ErrCodeCallError     = "call_error"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotInRoom    = errors.New("not in room")
	ErrRoomNotFound = errors.New("room not found")
	ErrEmptyMessage = errors.New("empty message")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
