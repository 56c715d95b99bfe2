package share

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks client-side validation failure. It never reaches
	// the network.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated marks the absence of a current user record. The call
	// is short-circuited client-side.
	ErrUnauthenticated = errors.New("not authenticated")
)

// genericRejection is shown when the service gave no usable detail text.
const genericRejection = "the share service rejected the request"

// RemoteError is a structured rejection from the share service. Detail
// carries the service's message verbatim when available.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("share service: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("share service: status %d", e.StatusCode)
}

// Message returns the user-facing text: the service's detail verbatim, or
// generic fallback wording when none was provided.
func (e *RemoteError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericRejection
}

// NetworkError is a transport-level failure. For user messaging it is
// treated like a rejection, but list callers must not confuse it with an
// empty result.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("share service unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Message returns the user-facing text for a transport failure.
func (e *NetworkError) Message() string {
	return "could not reach the share service"
}

// IsRemoteRejected reports whether err is a structured service rejection.
func IsRemoteRejected(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsNetworkFailure reports whether err is a transport-level failure.
func IsNetworkFailure(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UserMessage maps any client error to the text a frontend should display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "you are not signed in"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message()
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Message()
	}
	return genericRejection
}
