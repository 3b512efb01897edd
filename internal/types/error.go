package types

import "fmt"

// Stable error kinds surfaced to clients in the response envelope "type" field.
const (
	KindInvalidInput        = "invalid_input"
	KindInsufficientCredits = "insufficient_credits"
	KindUnknownUser         = "unknown_user"
	KindNotFound            = "not_found"
	KindStorageUnavailable  = "storage_unavailable"
	KindUnauthorized        = "unauthorized"
	KindForbidden           = "forbidden"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Is matches on the stable kind so wrapped and message-customized errors
// still compare equal to their sentinel.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for the core taxonomy. Services return these (or wrap them
// with %w) so handlers can map failures to stable client responses without
// leaking internal storage identifiers.
var (
	ErrInvalidInput        = &CustomError{Code: 400, Message: "invalid input", Type: KindInvalidInput}
	ErrInsufficientCredits = &CustomError{Code: 402, Message: "insufficient credits", Type: KindInsufficientCredits}
	ErrUnknownUser         = &CustomError{Code: 404, Message: "unknown user", Type: KindUnknownUser}
	ErrNotFound            = &CustomError{Code: 404, Message: "not found", Type: KindNotFound}
	ErrStorageUnavailable  = &CustomError{Code: 503, Message: "storage unavailable", Type: KindStorageUnavailable}
)

// InvalidInput builds an invalid_input error with a request-specific message.
func InvalidInput(format string, args ...interface{}) *CustomError {
	return &CustomError{Code: 400, Message: fmt.Sprintf(format, args...), Type: KindInvalidInput}
}
