package pg_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/auth"
	"github.com/giftwish/giftwish/store/pg"
)

func newSessionRepo(t *testing.T) (*pg.SessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pg.NewSessionRepo(pg.NewWithDB(db)), mock
}

func sampleSession(now time.Time) auth.Session {
	return auth.Session{
		ID:        "01J0SESSION",
		Email:     "user@example.com",
		TokenHash: "$2a$10$hash",
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestSessionCreate(t *testing.T) {
	repo, mock := newSessionRepo(t)
	now := time.Now()
	session := sampleSession(now)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(session.ID, session.Email, session.TokenHash, session.CreatedAt, session.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), session))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreateConflict(t *testing.T) {
	repo, mock := newSessionRepo(t)
	session := sampleSession(time.Now())

	mock.ExpectExec(`INSERT INTO sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), session)
	assert.ErrorIs(t, err, auth.ErrSessionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFind(t *testing.T) {
	repo, mock := newSessionRepo(t)
	now := time.Now()
	session := sampleSession(now)

	mock.ExpectQuery(`SELECT id, email, token_hash, created_at, expires_at`).
		WithArgs(session.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "token_hash", "created_at", "expires_at"}).
			AddRow(session.ID, session.Email, session.TokenHash, session.CreatedAt, session.ExpiresAt))

	found, err := repo.Find(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindNotFound(t *testing.T) {
	repo, mock := newSessionRepo(t)

	mock.ExpectQuery(`SELECT id, email, token_hash, created_at, expires_at`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "token_hash", "created_at", "expires_at"}))

	_, err := repo.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDeleteReportsWhetherRowExisted(t *testing.T) {
	repo, mock := newSessionRepo(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE id`).
		WithArgs("present").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE id`).
		WithArgs("absent").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDeleteExpired(t *testing.T) {
	repo, mock := newSessionRepo(t)
	now := time.Now()

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
