package starnotary

import (
	"fmt"

	"github.com/layer-3/starnotary/core"
)

// APIError is a rejection returned by the server
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("starnotary: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the wire code back to the domain error so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "no_challenge_issued":
		return core.ErrNoChallengeIssued
	case "window_expired":
		return core.ErrWindowExpired
	case "signature_invalid":
		return core.ErrSignatureInvalid
	case "unauthorized":
		return core.ErrUnauthorized
	case "already_registered":
		return core.ErrAlreadyRegistered
	case "not_found":
		return core.ErrNotFound
	case "technical_error":
		return core.ErrStoreOperationFailed
	default:
		return nil
	}
}

// Retryable reports whether the caller should restart the handshake
func (e *APIError) Retryable() bool {
	return e.Code == "no_challenge_issued" || e.Code == "window_expired"
}
