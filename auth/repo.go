package auth

import (
	"context"
	"time"
)

// Session is one refresh-token lineage. The id doubles as the refresh token's
// jti claim; TokenHash holds the bcrypt hash of the currently valid token so
// an older token from the same lineage cannot be replayed after rotation.
type Session struct {
	ID        string
	Email     string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepo persists refresh sessions.
type SessionRepo interface {
	// Create inserts a new session. An id collision returns
	// ErrSessionConflict.
	Create(ctx context.Context, session Session) error

	// Find returns the session with the given id, or ErrSessionNotFound.
	Find(ctx context.Context, id string) (Session, error)

	// Delete removes the session if present and reports whether a row was
	// actually deleted. Concurrent deleters of the same id see exactly one
	// true result.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteExpired removes sessions whose window ended before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
