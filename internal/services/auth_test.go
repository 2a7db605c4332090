package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/domain"
)

type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) {
	return salt + ":" + password, nil
}

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}

type fakeSessionIssuer struct {
	n int
}

func (f *fakeSessionIssuer) Issue(userID, email string, expiry time.Duration) (string, string, error) {
	f.n++
	return fmt.Sprintf("token-%d", f.n), fmt.Sprintf("jti-%d", f.n), nil
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func newAuthService(users *fakeUserRepo, revocations *fakeRevocationStore) domain.AuthService {
	return NewAuthService(users, fakeHasher{}, &fakeSessionIssuer{}, revocations, time.Hour)
}

func TestAuth_SignUpAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users, newFakeRevocationStore())

	user, err := svc.SignUp(context.Background(), "Alice@Example.com", "Alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.NotEmpty(t, user.ID)

	token, err := svc.Login(context.Background(), "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestAuth_SignUp_DuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), newFakeRevocationStore())

	_, err := svc.SignUp(context.Background(), "alice@example.com", "Alice", "s3cret")
	require.NoError(t, err)
	_, err = svc.SignUp(context.Background(), "alice@example.com", "Alice II", "other")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestAuth_SignUp_MissingFields(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), newFakeRevocationStore())

	_, err := svc.SignUp(context.Background(), "", "Alice", "s3cret")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.SignUp(context.Background(), "alice@example.com", "Alice", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuth_Login_BadCredentials(t *testing.T) {
	svc := newAuthService(newFakeUserRepo(), newFakeRevocationStore())

	_, err := svc.SignUp(context.Background(), "alice@example.com", "Alice", "s3cret")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, domain.ErrBadCredentials)
	_, err = svc.Login(context.Background(), "nobody@example.com", "s3cret")
	require.ErrorIs(t, err, domain.ErrBadCredentials)
}

func TestAuth_Logout_RevokesToken(t *testing.T) {
	revocations := newFakeRevocationStore()
	svc := newAuthService(newFakeUserRepo(), revocations)

	claims := &domain.TokenClaims{
		UserID:    "user-1",
		TokenID:   "jti-1",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, svc.Logout(context.Background(), claims))

	revoked, err := revocations.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	err = svc.Logout(context.Background(), &domain.TokenClaims{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
