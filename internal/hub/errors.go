package hub

import "fmt"

// Call error codes returned to the calling connection only.
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeNotConnected           = "NOT_CONNECTED"
	CodeInvalidSessionID       = "INVALID_SESSION_ID"
	CodeTextRequired           = "TEXT_REQUIRED"
	CodeRateLimited            = "RATE_LIMITED"
	CodeUnknownMethod          = "UNKNOWN_METHOD"
	CodeInvalidArguments       = "INVALID_ARGUMENTS"
	CodeBroadcastFailed        = "BROADCAST_FAILED"
)

// CallError is a call-scoped failure. It is never broadcast.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func callError(code, message string) *CallError {
	return &CallError{Code: code, Message: message}
}
