package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	for _, email := range []string{"a@x.com", "someone.else+tag@example.org"} {
		tok, err := m.Issue(Identity{Email: email, Name: "Someone"})
		require.NoError(t, err)

		claims, err := m.Verify(tok)
		require.NoError(t, err)
		require.Equal(t, email, claims.Email)
		require.Equal(t, "Someone", claims.Identity().Name)
		require.NotEmpty(t, claims.ID)
	}
}

func TestIssue_ExpiryUsesTTL(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManager("test-secret", 6*time.Hour)
	m.now = func() time.Time { return fixed }

	tok, err := m.Issue(Identity{Email: "a@x.com"})
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, fixed.Add(6*time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestVerify_ExpiredTokenRejected(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := m.Issue(Identity{Email: "a@x.com"})
	require.NoError(t, err)

	// verify with a fresh manager on the real clock: signature is valid, expiry has passed
	_, err = NewManager("test-secret", time.Hour).Verify(tok)
	require.Error(t, err)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	tok, err := NewManager("secret-a", time.Hour).Issue(Identity{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Verify(tok)
	require.Error(t, err)
}

func TestVerify_NoneAlgorithmRejected(t *testing.T) {
	claims := Claims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Hour).Verify(tok)
	require.Error(t, err)
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	claims := Claims{Email: "a@x.com"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Hour).Verify(tok)
	require.Error(t, err)
}

func TestVerify_MissingEmailRejected(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrMissingEmail)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewManager("test-secret", time.Hour).Verify("not.a.jwt")
	require.Error(t, err)

	_, err = NewManager("test-secret", time.Hour).Verify("")
	require.Error(t, err)
}
