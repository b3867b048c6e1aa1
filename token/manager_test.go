package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/permissions"
	"github.com/giftwish/giftwish/token"
)

type managerFixture struct {
	manager *token.Manager
	now     time.Time
}

func newManagerFixture(t *testing.T, options ...token.ManagerOption) *managerFixture {
	t.Helper()

	keyPair, err := token.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)

	signer, err := token.NewKeyPairSigner(keyPair)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	options = append([]token.ManagerOption{
		token.WithNowFunc(func() time.Time { return now }),
	}, options...)

	manager, err := token.NewManager(signer, "giftwish", options...)
	require.NoError(t, err)

	return &managerFixture{manager: manager, now: now}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	f := newManagerFixture(t)

	perms := []permissions.Permission{
		{Resource: permissions.ResourceGift, Scopes: []permissions.Scope{permissions.ScopeView}},
	}

	signed, err := f.manager.SignAccess("user@example.com", perms)
	require.NoError(t, err)

	claims, err := f.manager.Verify(signed, token.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user@example.com", claims.Subject)
	assert.Equal(t, token.TypeAccess, claims.TokenType)
	assert.Equal(t, perms, claims.Permissions)
	assert.Equal(t, "giftwish", claims.Issuer)
}

func TestRefreshTokenCarriesSessionID(t *testing.T) {
	f := newManagerFixture(t)

	signed, err := f.manager.SignRefresh("user@example.com", "session-123")
	require.NoError(t, err)

	claims, err := f.manager.Verify(signed, token.TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "session-123", claims.SessionID())
	assert.Empty(t, claims.Permissions)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	f := newManagerFixture(t)

	access, err := f.manager.SignAccess("user@example.com", nil)
	require.NoError(t, err)
	refresh, err := f.manager.SignRefresh("user@example.com", "session-123")
	require.NoError(t, err)

	_, err = f.manager.Verify(access, token.TypeRefresh)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.manager.Verify(refresh, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	keyPair, err := token.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)
	signer, err := token.NewKeyPairSigner(keyPair)
	require.NoError(t, err)
	manager, err := token.NewManager(signer, "giftwish",
		token.WithNowFunc(func() time.Time { return *clock }),
		token.WithTokenExpiry(15*time.Minute, 7*24*time.Hour),
	)
	require.NoError(t, err)

	signed, err := manager.SignAccess("user@example.com", nil)
	require.NoError(t, err)

	now = now.Add(16 * time.Minute)
	_, err = manager.Verify(signed, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	f := newManagerFixture(t)

	signed, err := f.manager.SignAccess("user@example.com", nil)
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = f.manager.Verify(tampered, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsNonRSASigningMethod(t *testing.T) {
	f := newManagerFixture(t)

	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &token.Claims{
		Email:     "user@example.com",
		TokenType: token.TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Hour)),
		},
	})
	signed, err := hmacToken.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = f.manager.Verify(signed, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsTokenSignedWithDifferentKey(t *testing.T) {
	f := newManagerFixture(t)
	other := newManagerFixture(t)

	signed, err := other.manager.SignAccess("user@example.com", nil)
	require.NoError(t, err)

	_, err = f.manager.Verify(signed, token.TypeAccess)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
