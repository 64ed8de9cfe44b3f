package store

import "errors"

var (
	// ErrUnavailable wraps any Redis transport or server failure.
	ErrUnavailable = errors.New("token store unavailable")
	// ErrNotFound is returned when no refresh token is stored for the subject.
	ErrNotFound = errors.New("refresh token not found")
	// ErrMismatch is returned by Rotate when the stored token differs from the presented one.
	ErrMismatch = errors.New("refresh token mismatch")
)
