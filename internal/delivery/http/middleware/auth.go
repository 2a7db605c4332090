package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventgate/internal/delivery/http/helpers"
	"eventgate/internal/domain"
)

type contextKey string

const claimsKey contextKey = "tokenClaims"

// SetClaims returns a context with the verified token claims set.
func SetClaims(ctx context.Context, claims *domain.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the verified token claims from the context, if present.
func ClaimsFromContext(ctx context.Context) (*domain.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*domain.TokenClaims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

// RequireAuth returns a wrapper that validates the Bearer token, rejects
// revoked sessions, and sets the claims in the request context. If the token
// is missing, invalid, or revoked, it responds 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, revocations domain.TokenRevocationStore, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			revoked, err := revocations.IsRevoked(r.Context(), claims.TokenID)
			if err != nil {
				logger.ErrorContext(r.Context(), "revocation check failed", "err", err)
				h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "could not verify session")
				return
			}
			if revoked {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "session revoked")
				return
			}
			r = r.WithContext(SetClaims(r.Context(), claims))
			next(w, r)
		}
	}
}
