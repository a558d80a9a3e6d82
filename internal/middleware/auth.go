package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"ledger/internal/auth"
)

type contextKey string

const (
	accountIDKey contextKey = "account_id"
	claimsKey    contextKey = "claims"
)

func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// WithClaims stores the verified token claims on ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, claims.AccountID)
	return context.WithValue(ctx, claimsKey, claims)
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Verify parses raw and rejects tokens that were revoked at logout. A revocation
// store that cannot be reached fails closed.
func Verify(ctx context.Context, secret string, revoker auth.Revoker, raw string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(secret, raw)
	if err != nil {
		return nil, err
	}
	revoked, err := revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Printf("auth: revocation check failed: %v", err)
		return nil, err
	}
	if revoked {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func Auth(secret string, revoker auth.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := Verify(r.Context(), secret, revoker, token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
