package scheduling

import (
	"errors"
	"fmt"
)

// ErrNoValidCredential is raised when every configured credential has been
// exhausted; this is a fatal, user-visible condition.
var ErrNoValidCredential = errors.New("no valid credential available")

// APIError carries the provider-side failure details for a scheduling API
// call.
type APIError struct {
	StatusCode  int
	Code        string
	Message     string
	IsAuthError bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scheduling api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

// RequestValidationError rejects a malformed request before any network
// call is made.
type RequestValidationError struct {
	Message string
}

func (e *RequestValidationError) Error() string {
	return "invalid scheduling request: " + e.Message
}
