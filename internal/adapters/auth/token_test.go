package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuer_Issue(t *testing.T) {
	secret := "test-secret"
	issuer := NewJWTIssuer(secret)

	token, tokenID, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, tokenID)

	// Parse and verify claims
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, tokenID, claims.ID)
}

func TestJWTIssuer_UniqueTokenIDs(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	_, id1, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)
	_, id2, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2, "each session gets its own revocable id")
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	secret := "test-secret"
	issuer := NewJWTIssuer(secret)
	verifier := NewJWTVerifier(secret)

	token, tokenID, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, tokenID, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	issuer := NewJWTIssuer("secret-a")
	verifier := NewJWTVerifier("secret-b")

	token, _, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestJWTVerifier_Expired(t *testing.T) {
	secret := "test-secret"
	issuer := NewJWTIssuer(secret)
	verifier := NewJWTVerifier(secret)

	token, _, err := issuer.Issue("user-123", "u@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestJWTVerifier_Garbage(t *testing.T) {
	verifier := NewJWTVerifier("test-secret")
	_, err := verifier.Verify("not-a-jwt")
	assert.Error(t, err)
}
