package domain

import "errors"

// Error kinds surfaced by the jam engine.
var (
	ErrInvalidRoom             = errors.New("invalid room")
	ErrRoomNotFound            = errors.New("room not found")
	ErrMalformedMessage        = errors.New("malformed message")
	ErrRequestNotFound         = errors.New("request not found")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrReapSweepPartialFailure = errors.New("reap sweep partially failed")
)

// Error codes carried by the error event and HTTP error bodies.
const (
	ErrCodeInvalidRoom       = "INVALID_ROOM"
	ErrCodeRoomNotFound      = "ROOM_NOT_FOUND"
	ErrCodeMalformedMessage  = "MALFORMED_MESSAGE"
	ErrCodeRequestNotFound   = "REQUEST_NOT_FOUND"
	ErrCodeStoreUnavailable  = "STORE_UNAVAILABLE"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRoom):
		return ErrCodeInvalidRoom
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrMalformedMessage):
		return ErrCodeMalformedMessage
	case errors.Is(err, ErrRequestNotFound):
		return ErrCodeRequestNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return ErrCodeStoreUnavailable
	case errors.Is(err, ErrInvalidTransition):
		return ErrCodeInvalidTransition
	default:
		return ErrCodeInternalError
	}
}
