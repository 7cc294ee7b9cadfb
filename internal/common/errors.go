// Package common defines the error taxonomy shared by the stores and the
// facade, plus small helpers for generating opaque tokens. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// ErrValidation means the input violates a required invariant. Not retried.
	ErrValidation = errors.New("validation error")

	// ErrConflict means a uniqueness constraint was violated. Not retried.
	ErrConflict = errors.New("already exists")

	// ErrNotFound means the referenced user, mod or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthenticationFailed is the uniform login failure signal. It never
	// says whether the email or the password was wrong.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrStorageUnavailable means the database could not be reached or a
	// transaction could not be committed. Safe to retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// session errors
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrForbidden      = errors.New("forbidden")
)

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
