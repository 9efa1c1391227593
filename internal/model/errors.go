package model

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs a caller identity and none is present.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrRemoteUnavailable matches any *RemoteError via errors.Is.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)

// RemoteError reports a failed call to a backing store.
// Error() returns the collaborator's message unchanged so it can be shown to the user.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRemoteUnavailable) true for every RemoteError.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// NewRemoteError wraps err as a RemoteError, keeping nil as nil.
func NewRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
