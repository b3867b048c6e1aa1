package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/auth"
)

const uniqueViolation = "23505"

// SessionRepo is the Postgres implementation of auth.SessionRepo.
type SessionRepo struct {
	store *Store
}

var _ auth.SessionRepo = (*SessionRepo)(nil)

// NewSessionRepo creates a SessionRepo over store.
func NewSessionRepo(store *Store) *SessionRepo {
	return &SessionRepo{store: store}
}

func (r *SessionRepo) Create(ctx context.Context, session auth.Session) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO sessions (id, email, token_hash, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.Email, session.TokenHash, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrSessionConflict
		}
		return errors.Wrap(err, "[Create] insert session")
	}
	return nil
}

func (r *SessionRepo) Find(ctx context.Context, id string) (auth.Session, error) {
	var session auth.Session
	err := r.store.db.QueryRowContext(ctx,
		`SELECT id, email, token_hash, created_at, expires_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.Email, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "[Find] select session")
	}
	return session, nil
}

// Delete removes the session row. The affected-row count is the arbiter when
// two refreshes race: only one delete reports a removed row.
func (r *SessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "[Delete] delete session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "[Delete] rows affected")
	}
	return affected > 0, nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "[DeleteExpired] delete sessions")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "[DeleteExpired] rows affected")
	}
	return affected, nil
}
