package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs claims and supplies the verification key for parsing.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	Keyfunc() jwt.Keyfunc
}

// KeyPairSigner signs and verifies tokens with a single RSA key pair.
type KeyPairSigner struct {
	keyPair *KeyPair
}

// NewKeyPairSigner creates an RS256 signer backed by keyPair.
func NewKeyPairSigner(keyPair *KeyPair) (*KeyPairSigner, error) {
	if keyPair == nil || keyPair.PrivateKey == nil || keyPair.PublicKey == nil {
		return nil, errors.New("[NewKeyPairSigner] incomplete key pair")
	}
	return &KeyPairSigner{keyPair: keyPair}, nil
}

// Sign produces a compact RS256 JWT for the supplied claims.
func (s *KeyPairSigner) Sign(claims jwt.Claims) (string, error) {
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.keyPair.KeyID != "" {
		jwtToken.Header["kid"] = s.keyPair.KeyID
	}

	signed, err := jwtToken.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "[Sign] jwtToken.SignedString")
	}
	return signed, nil
}

// Keyfunc returns the verification key and rejects any token whose header
// declares a non-RSA signing method.
func (s *KeyPairSigner) Keyfunc() jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.keyPair.PublicKey, nil
	}
}
