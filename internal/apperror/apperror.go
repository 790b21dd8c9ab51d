package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core error taxonomy. Services wrap these with %w so
// callers can branch with errors.Is while keeping the original detail.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNotFound             = errors.New("not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrValidation           = errors.New("validation failure")
	ErrInvalidTopics        = errors.New("invalid topic set")
	ErrMessageLimitExceeded = errors.New("message limit exceeded")
	ErrBackendFailure       = errors.New("ai backend failure")
	ErrPersistence          = errors.New("persistence failure")
)

// Code returns the stable machine-readable code for err, used both in REST
// error envelopes and websocket error events. Unknown errors map to
// INTERNAL_ERROR so internals never leak to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAccessDenied):
		return "ACCESS_DENIED"
	case errors.Is(err, ErrInvalidTopics), errors.Is(err, ErrValidation):
		return "VALIDATION_FAILURE"
	case errors.Is(err, ErrMessageLimitExceeded):
		return "MESSAGE_LIMIT_EXCEEDED"
	case errors.Is(err, ErrBackendFailure):
		return "AI_GENERATION_FAILED"
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// Persistencef wraps ErrPersistence around a storage-level error.
func Persistencef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
