package auth

import "github.com/pkg/errors"

var (
	// ErrInvalidCode is returned when a login code does not match the one
	// on record for the email, or no code was ever issued.
	ErrInvalidCode = errors.New("invalid login code")

	// ErrExpiredCode is returned when a matching login code exists but its
	// validity window has passed.
	ErrExpiredCode = errors.New("expired login code")

	// ErrUnauthorized is the single error surfaced to callers for any
	// refresh or identity failure. Internal causes are logged, not returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionNotFound indicates no persisted session matches the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the persisted session outlived its window.
	ErrSessionExpired = errors.New("session expired")

	// ErrHashMismatch indicates a presented refresh token does not match the
	// hash stored for its session, meaning the token was already rotated.
	ErrHashMismatch = errors.New("refresh token hash mismatch")

	// ErrSessionConflict indicates a session id collision on insert.
	ErrSessionConflict = errors.New("session already exists")

	// ErrNoCredentials indicates a request carried no usable token at all.
	ErrNoCredentials = errors.New("no credentials supplied")

	// ErrInsufficientPermissions indicates valid credentials that lack the
	// scopes a handler requires.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
