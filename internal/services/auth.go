package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventgate/internal/domain"
)

type authService struct {
	userRepo    domain.UserRepository
	hasher      domain.PasswordHasher
	issuer      domain.SessionTokenIssuer
	revocations domain.TokenRevocationStore
	expiry      time.Duration
}

// NewAuthService creates an AuthService issuing revocable session tokens.
func NewAuthService(
	userRepo domain.UserRepository,
	hasher domain.PasswordHasher,
	issuer domain.SessionTokenIssuer,
	revocations domain.TokenRevocationStore,
	expiry time.Duration,
) domain.AuthService {
	return &authService{
		userRepo:    userRepo,
		hasher:      hasher,
		issuer:      issuer,
		revocations: revocations,
		expiry:      expiry,
	}
}

func (s *authService) SignUp(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := domain.NewUser(email, name, hash, salt, now, now)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrBadCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", domain.ErrBadCredentials
	}

	token, _, err := s.issuer.Issue(user.ID, user.Email, s.expiry)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// Logout revokes the session token until its natural expiry. The revocation
// store is persisted with TTL, so a restart does not resurrect the session.
func (s *authService) Logout(ctx context.Context, claims *domain.TokenClaims) error {
	if claims == nil || claims.TokenID == "" {
		return fmt.Errorf("%w: missing token claims", domain.ErrInvalidInput)
	}
	ttl := time.Until(claims.ExpiresAt)
	if err := s.revocations.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
