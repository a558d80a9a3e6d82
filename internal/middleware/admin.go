package middleware

import (
	"context"
	"errors"
	"net/http"

	"ledger/internal/models"
)

type AccountLookup interface {
	AccountByID(ctx context.Context, id int64) (models.Account, error)
}

// RequireAdmin lets the request through only when the caller's account
// currently carries the admin flag. Must run after Auth.
func RequireAdmin(accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			account, err := accounts.AccountByID(r.Context(), accountID)
			if errors.Is(err, models.ErrAccountNotFound) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if !account.IsAdmin {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
