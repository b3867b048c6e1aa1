package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/permissions"
)

// DefaultCodeTTL is how long an issued login code stays valid.
const DefaultCodeTTL = 10 * time.Minute

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// CodeStore issues and verifies one-time login codes, keyed by normalized
// email. Codes live in memory only; a restart invalidates them all, which is
// acceptable for a ten minute window.
type CodeStore struct {
	mu      sync.Mutex
	codes   map[string]issuedCode
	ttl     time.Duration
	nowFunc func() time.Time
}

// CodeStoreOption configures a CodeStore.
type CodeStoreOption func(*CodeStore)

// WithCodeTTL overrides the default code validity window.
func WithCodeTTL(ttl time.Duration) CodeStoreOption {
	return func(s *CodeStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCodeNowFunc injects the clock for tests.
func WithCodeNowFunc(now func() time.Time) CodeStoreOption {
	return func(s *CodeStore) {
		if now != nil {
			s.nowFunc = now
		}
	}
}

// NewCodeStore creates an empty code store.
func NewCodeStore(options ...CodeStoreOption) *CodeStore {
	s := &CodeStore{
		codes:   make(map[string]issuedCode),
		ttl:     DefaultCodeTTL,
		nowFunc: time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Issue generates a six digit code for email, replacing any code previously
// issued for the same address.
func (s *CodeStore) Issue(email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(err, "[Issue] rand.Int")
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[permissions.NormalizeIdentity(email)] = issuedCode{
		code:      code,
		expiresAt: s.nowFunc().Add(s.ttl),
	}
	return code, nil
}

// Verify checks code against the one issued for email. A correct code is
// consumed and cannot be used again. An expired code is removed and reported
// as ErrExpiredCode; a wrong or missing code is ErrInvalidCode.
func (s *CodeStore) Verify(email, code string) error {
	key := permissions.NormalizeIdentity(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.codes[key]
	if !ok {
		return ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(issued.code), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	// Matched codes are single use either way.
	delete(s.codes, key)

	// Valid strictly before the deadline; a code presented at the exact
	// expiry instant is already dead.
	if !s.nowFunc().Before(issued.expiresAt) {
		return ErrExpiredCode
	}
	return nil
}
