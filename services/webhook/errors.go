package webhook

import "fmt"

// SignatureError codes.
const (
	CodeMissingSignature   = "missing_signature"
	CodeInvalidSignature   = "invalid_signature"
	CodeReplayAttack       = "replay_attack"
	CodeConfigurationError = "configuration_error"
)

// SignatureError is raised when an inbound webhook fails verification; the
// handler translates it into an HTTP response.
type SignatureError struct {
	Code    string
	Message string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newSignatureError(code, msg string) *SignatureError {
	return &SignatureError{Code: code, Message: msg}
}
