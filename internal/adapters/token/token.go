package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"eventgate/internal/domain"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

type sha256Issuer struct{}

// NewIssuer returns a CheckInTokenIssuer that generates cryptographically
// random alphanumeric tokens and stores only their SHA-256 hash.
func NewIssuer() domain.CheckInTokenIssuer {
	return &sha256Issuer{}
}

func (i *sha256Issuer) Issue(length int) (plaintext, hash string, err error) {
	if length <= 0 {
		return "", "", fmt.Errorf("token length must be positive, got %d", length)
	}
	buf := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for n := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", "", fmt.Errorf("failed to generate token: %w", err)
		}
		buf[n] = alphabet[idx.Int64()]
	}
	plaintext = string(buf)
	return plaintext, Hash(plaintext), nil
}

// Verify compares the candidate against the stored hash in constant time.
// A mismatch is a normal outcome, not an error; expiry is the caller's check.
func (i *sha256Issuer) Verify(plaintext, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(plaintext)), []byte(hash)) == 1
}

// Hash returns the hex-encoded SHA-256 of the plaintext token.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
