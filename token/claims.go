package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/giftwish/giftwish/permissions"
)

// Type discriminates access tokens from refresh tokens. A token of one type
// is never accepted where the other is expected.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the JWT payload shared by access and refresh tokens.
//
// Access tokens carry the caller's resolved permissions so resource handlers
// can authorize without a lookup. Refresh tokens instead carry the session id
// in the jti registered claim, which keys the persisted session row.
type Claims struct {
	Email       string                   `json:"email"`
	TokenType   Type                     `json:"type"`
	Permissions []permissions.Permission `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the session identifier bound to a refresh token.
func (c *Claims) SessionID() string {
	return c.ID
}
