package auth_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/auth"
)

func TestIssueProducesSixDigitCode(t *testing.T) {
	store := auth.NewCodeStore()

	code, err := store.Issue("user@example.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{5}$`), code)
}

func TestVerifyConsumesCode(t *testing.T) {
	store := auth.NewCodeStore()

	code, err := store.Issue("user@example.com")
	require.NoError(t, err)

	require.NoError(t, store.Verify("user@example.com", code))
	assert.ErrorIs(t, store.Verify("user@example.com", code), auth.ErrInvalidCode)
}

func TestVerifyIsCaseInsensitiveOnEmail(t *testing.T) {
	store := auth.NewCodeStore()

	code, err := store.Issue("User@Example.COM")
	require.NoError(t, err)

	assert.NoError(t, store.Verify("user@example.com", code))
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	store := auth.NewCodeStore()

	_, err := store.Issue("user@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, store.Verify("user@example.com", "000000"), auth.ErrInvalidCode)
}

func TestVerifyRejectsUnknownEmail(t *testing.T) {
	store := auth.NewCodeStore()
	assert.ErrorIs(t, store.Verify("nobody@example.com", "123456"), auth.ErrInvalidCode)
}

func TestVerifyRejectsExpiredCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := auth.NewCodeStore(
		auth.WithCodeNowFunc(func() time.Time { return now }),
	)

	code, err := store.Issue("user@example.com")
	require.NoError(t, err)

	now = now.Add(auth.DefaultCodeTTL + time.Second)
	assert.ErrorIs(t, store.Verify("user@example.com", code), auth.ErrExpiredCode)

	// Expired codes are consumed too.
	assert.ErrorIs(t, store.Verify("user@example.com", code), auth.ErrInvalidCode)
}

func TestVerifyRejectsCodeAtExactExpiryInstant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := auth.NewCodeStore(
		auth.WithCodeNowFunc(func() time.Time { return now }),
	)

	code, err := store.Issue("user@example.com")
	require.NoError(t, err)

	// Codes are valid strictly before the deadline.
	now = now.Add(auth.DefaultCodeTTL)
	assert.ErrorIs(t, store.Verify("user@example.com", code), auth.ErrExpiredCode)

	// One nanosecond earlier it would still have passed.
	code, err = store.Issue("other@example.com")
	require.NoError(t, err)
	now = now.Add(auth.DefaultCodeTTL - time.Nanosecond)
	assert.NoError(t, store.Verify("other@example.com", code))
}

func TestReissueReplacesPreviousCode(t *testing.T) {
	store := auth.NewCodeStore()

	first, err := store.Issue("user@example.com")
	require.NoError(t, err)
	second, err := store.Issue("user@example.com")
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, store.Verify("user@example.com", first), auth.ErrInvalidCode)
	}
	assert.NoError(t, store.Verify("user@example.com", second))
}
