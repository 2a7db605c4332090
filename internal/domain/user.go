package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrBadCredentials = errors.New("invalid email or password")
)

// User represents a registered user.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User. ID is typically set by the repository on create.
func NewUser(email, name, passwordHash, salt string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenClaims are the verified claims of a session token.
type TokenClaims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// SessionTokenIssuer issues session tokens (e.g. JWT) for an authenticated
// user. tokenID identifies the token for later revocation.
type SessionTokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (token, tokenID string, err error)
}

// TokenVerifier verifies a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenRevocationStore tracks revoked session tokens until their natural
// expiry. Backed by a persisted store with TTL so revocation survives process
// restarts and is shared across instances.
type TokenRevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService provides signup, login, and logout.
type AuthService interface {
	SignUp(ctx context.Context, email, name, password string) (*User, error)
	Login(ctx context.Context, email, password string) (token string, err error)
	Logout(ctx context.Context, claims *TokenClaims) error
}
