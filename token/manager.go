package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/permissions"
)

// ErrInvalidToken is returned for any token that fails parsing, signature
// verification, time validation, or the expected-type check. Callers are not
// told which check failed.
var ErrInvalidToken = errors.New("invalid token")

const (
	// DefaultAccessTokenExpiry bounds how long an access token is usable
	// before the client must refresh.
	DefaultAccessTokenExpiry = 15 * time.Minute

	// DefaultRefreshTokenExpiry bounds the overall session lifetime.
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Manager issues and verifies the two token types used by the auth service.
type Manager struct {
	signer        Signer
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTokenExpiry overrides the default access and refresh token lifetimes.
func WithTokenExpiry(access, refresh time.Duration) ManagerOption {
	return func(m *Manager) {
		if access > 0 {
			m.accessExpiry = access
		}
		if refresh > 0 {
			m.refreshExpiry = refresh
		}
	}
}

// WithNowFunc injects the clock, used by tests to control token validity.
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.nowFunc = now
		}
	}
}

// NewManager creates a Manager signing with signer and stamping iss=issuer.
func NewManager(signer Signer, issuer string, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[NewManager] nil signer")
	}

	m := &Manager{
		signer:        signer,
		issuer:        issuer,
		accessExpiry:  DefaultAccessTokenExpiry,
		refreshExpiry: DefaultRefreshTokenExpiry,
		nowFunc:       time.Now,
	}
	for _, option := range options {
		option(m)
	}
	return m, nil
}

// AccessExpiry reports the configured access token lifetime.
func (m *Manager) AccessExpiry() time.Duration { return m.accessExpiry }

// RefreshExpiry reports the configured refresh token lifetime.
func (m *Manager) RefreshExpiry() time.Duration { return m.refreshExpiry }

// SignAccess issues an access token embedding the caller's permissions.
func (m *Manager) SignAccess(email string, perms []permissions.Permission) (string, error) {
	now := m.nowFunc()
	signed, err := m.signer.Sign(&Claims{
		Email:       email,
		TokenType:   TypeAccess,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "[SignAccess] signer.Sign")
	}
	return signed, nil
}

// SignRefresh issues a refresh token whose jti is the session id.
func (m *Manager) SignRefresh(email, sessionID string) (string, error) {
	now := m.nowFunc()
	signed, err := m.signer.Sign(&Claims{
		Email:     email,
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshExpiry)),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "[SignRefresh] signer.Sign")
	}
	return signed, nil
}

// Verify parses and validates raw and checks it carries the expected type.
// Every failure collapses to ErrInvalidToken.
func (m *Manager) Verify(raw string, expected Type) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, m.signer.Keyfunc(),
		jwt.WithValidMethods([]string{RS256}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithIssuedAt(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
