package transport

import "fmt"

// TransportError covers network failures, timeouts, and non-2xx responses
// other than credential rejections. It is always recoverable: the user can
// retry the command.
type TransportError struct {
	Op      string // service operation, e.g. "debug"
	Status  int    // HTTP status, 0 for network-level failures
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError indicates a rejected or missing credential, or a state mismatch
// in the delegated sign-in flow. It always forces the session back to
// Unauthenticated.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }
