package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/giftwish/giftwish/email"
	"github.com/giftwish/giftwish/internal/ids"
	"github.com/giftwish/giftwish/permissions"
	"github.com/giftwish/giftwish/token"
)

const bcryptCost = 10

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// User is the identity snapshot embedded in an access token. It reflects the
// moment the token was signed, not the current policy.
type User struct {
	Email       string                   `json:"email"`
	Permissions []permissions.Permission `json:"permissions"`
}

// Repos holds the repository dependencies for the Service.
type Repos struct {
	Sessions SessionRepo
}

// Service implements passwordless login, token issuance, refresh rotation
// and logout.
type Service struct {
	repos    Repos
	codes    *CodeStore
	tokens   *token.Manager
	resolver *permissions.Resolver
	mailer   email.Sender
	logger   zerolog.Logger
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes the auth Service with required dependencies.
func NewService(
	repos Repos,
	codes *CodeStore,
	tokens *token.Manager,
	resolver *permissions.Resolver,
	mailer email.Sender,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if codes == nil {
		return nil, errors.New("[NewService] code store is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if resolver == nil {
		return nil, errors.New("[NewService] permissions resolver is required")
	}
	if mailer == nil {
		return nil, errors.New("[NewService] mailer is required")
	}

	service := &Service{
		repos:    repos,
		codes:    codes,
		tokens:   tokens,
		resolver: resolver,
		mailer:   mailer,
		logger:   zerolog.Nop(),
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// RequestCode issues a one-time login code for email and mails it. Reissuing
// replaces any earlier code for the same address.
func (s *Service) RequestCode(ctx context.Context, emailAddr string) error {
	emailAddr = permissions.NormalizeIdentity(emailAddr)

	code, err := s.codes.Issue(emailAddr)
	if err != nil {
		return errors.Wrap(err, "[RequestCode] codes.Issue")
	}

	message := email.Message{
		To:      emailAddr,
		Subject: "Your login code",
		Body:    fmt.Sprintf("Your one-time login code is %s. It expires in 10 minutes.", code),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		return errors.Wrap(err, "[RequestCode] mailer.Send")
	}
	return nil
}

// VerifyCode exchanges a valid login code for a token pair and opens a new
// refresh session. The code is consumed whether or not issuance succeeds.
func (s *Service) VerifyCode(ctx context.Context, emailAddr, code string) (*TokenPair, error) {
	emailAddr = permissions.NormalizeIdentity(emailAddr)

	if err := s.codes.Verify(emailAddr, code); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, emailAddr)
}

// Refresh rotates a refresh token: the presented token must verify, its
// session must exist, be unexpired and hold the matching hash. The old
// session row is atomically replaced by a new one, so of two concurrent
// refreshes with the same token exactly one succeeds.
//
// Every failure surfaces as ErrUnauthorized; the cause is only logged.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(rawToken, token.TypeRefresh)
	if err != nil {
		s.logger.Debug().Err(err).Msg("refresh rejected: token verification failed")
		return nil, ErrUnauthorized
	}

	session, err := s.repos.Sessions.Find(ctx, claims.SessionID())
	if err != nil {
		s.logger.Debug().Err(err).Str("session_id", claims.SessionID()).Msg("refresh rejected: session lookup failed")
		return nil, ErrUnauthorized
	}

	if s.nowTime().After(session.ExpiresAt) {
		if _, err := s.repos.Sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed deleting expired session")
		}
		s.logger.Debug().Str("session_id", session.ID).Msg("refresh rejected: session expired")
		return nil, ErrUnauthorized
	}

	if err := compareRefreshToken(session.TokenHash, rawToken); err != nil {
		// A stale token from this lineage was replayed. Revoke the whole
		// lineage so the holder of the current token must log in again.
		if _, err := s.repos.Sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed revoking session after hash mismatch")
		}
		s.logger.Warn().Str("session_id", session.ID).Msg("refresh rejected: token hash mismatch, session revoked")
		return nil, ErrUnauthorized
	}

	deleted, err := s.repos.Sessions.Delete(ctx, session.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("refresh rejected: session delete failed")
		return nil, ErrUnauthorized
	}
	if !deleted {
		// A concurrent refresh already consumed this session.
		s.logger.Debug().Str("session_id", session.ID).Msg("refresh rejected: session already rotated")
		return nil, ErrUnauthorized
	}

	return s.issueTokens(ctx, session.Email)
}

// Logout revokes the session behind rawToken. It never returns an error:
// a missing, invalid or already revoked token leaves the caller in the same
// logged out state. A stale token from an already rotated lineage carries
// the session id but not the current hash, so it cannot revoke the session
// its successor still uses.
func (s *Service) Logout(ctx context.Context, rawToken string) {
	claims, err := s.tokens.Verify(rawToken, token.TypeRefresh)
	if err != nil {
		return
	}

	session, err := s.repos.Sessions.Find(ctx, claims.SessionID())
	if err != nil {
		return
	}
	if err := compareRefreshToken(session.TokenHash, rawToken); err != nil {
		s.logger.Warn().Str("session_id", session.ID).Msg("logout ignored: token hash mismatch")
		return
	}

	if _, err := s.repos.Sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed deleting session on logout")
	}
}

// CurrentUser returns the identity snapshot carried by verified access
// token claims.
func (s *Service) CurrentUser(claims *token.Claims) (*User, error) {
	if claims == nil || claims.Email == "" {
		return nil, ErrUnauthorized
	}
	return &User{
		Email:       claims.Email,
		Permissions: claims.Permissions,
	}, nil
}

// VerifyAccess validates a raw access token and returns its claims.
func (s *Service) VerifyAccess(rawToken string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(rawToken, token.TypeAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// RefreshExpiry reports the refresh token lifetime, used to size cookies.
func (s *Service) RefreshExpiry() time.Duration {
	return s.tokens.RefreshExpiry()
}

// CleanupExpiredSessions removes refresh sessions past their window.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.repos.Sessions.DeleteExpired(ctx, s.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[CleanupExpiredSessions] DeleteExpired")
	}
	return removed, nil
}

func (s *Service) issueTokens(ctx context.Context, emailAddr string) (*TokenPair, error) {
	sessionID := ids.New()

	refreshToken, err := s.tokens.SignRefresh(emailAddr, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[issueTokens] SignRefresh")
	}

	tokenHash, err := hashRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "[issueTokens] hashRefreshToken")
	}

	now := s.nowTime()
	if err := s.repos.Sessions.Create(ctx, Session{
		ID:        sessionID,
		Email:     emailAddr,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.RefreshExpiry()),
	}); err != nil {
		return nil, errors.Wrap(err, "[issueTokens] Sessions.Create")
	}

	accessToken, err := s.tokens.SignAccess(emailAddr, s.resolver.Resolve(emailAddr))
	if err != nil {
		return nil, errors.Wrap(err, "[issueTokens] SignAccess")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashRefreshToken pre-hashes the JWT with sha256 before bcrypt because
// bcrypt rejects inputs longer than 72 bytes and a compact JWT always is.
func hashRefreshToken(rawToken string) (string, error) {
	digest := sha256.Sum256([]byte(rawToken))
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(digest[:])), bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "[hashRefreshToken] bcrypt.GenerateFromPassword")
	}
	return string(hash), nil
}

func compareRefreshToken(storedHash, rawToken string) error {
	digest := sha256.Sum256([]byte(rawToken))
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(hex.EncodeToString(digest[:]))); err != nil {
		return ErrHashMismatch
	}
	return nil
}
