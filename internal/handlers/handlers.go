package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ledger/internal/middleware"
	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps ledger errors to a status and a short code.
// Anything unrecognised is reported with fallback.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var storage *services.StorageError
	if errors.As(err, &storage) && storage.Inconsistent() {
		log.Printf("ledger: CRITICAL %v", err)
		respondError(w, http.StatusInternalServerError, "ledger_inconsistent")
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrReceiverNotFound):
		respondError(w, http.StatusNotFound, "receiver_not_found")
	case errors.Is(err, services.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "account_not_found")
	case errors.Is(err, services.ErrDuplicateUsername):
		respondError(w, http.StatusConflict, "username_taken")
	case errors.Is(err, services.ErrReservedUsername):
		respondError(w, http.StatusBadRequest, "username_reserved")
	case errors.Is(err, services.ErrProtectedAccount):
		respondError(w, http.StatusForbidden, "protected_account")
	default:
		log.Printf("%s: %v", fallback, err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// currentAccount loads the caller's account. On failure the response has
// already been written.
func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return models.Account{}, false
	}
	account, err := h.service.AccountByID(r.Context(), accountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return models.Account{}, false
	}
	if err != nil {
		log.Printf("load account %d: %v", accountID, err)
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return models.Account{}, false
	}
	return account, true
}

// recordAudit writes an audit entry after the change it describes has been
// committed, so a failure here is only logged.
func (h *Handler) recordAudit(ctx context.Context, actor, action, entity string, data map[string]any) {
	payload, _ := json.Marshal(data)
	if err := h.audit.Log(ctx, actor, action, entity, string(payload)); err != nil {
		log.Printf("audit: %s by %s not recorded: %v", action, actor, err)
	}
}

func accountView(account models.Account) map[string]any {
	return map[string]any{
		"id":         account.ID,
		"username":   account.Username,
		"is_admin":   account.IsAdmin,
		"balance":    money.Format(account.Balance),
		"created_at": account.CreatedAt,
	}
}

func transactionView(record models.Transaction) map[string]any {
	return map[string]any{
		"id":        record.ID,
		"timestamp": record.Timestamp,
		"sender":    record.Sender,
		"receiver":  record.Receiver,
		"amount":    money.Format(record.Amount),
		"type":      string(record.Type),
		"memo":      record.Memo,
	}
}

func transactionViews(records []models.Transaction) []map[string]any {
	views := make([]map[string]any, 0, len(records))
	for _, record := range records {
		views = append(views, transactionView(record))
	}
	return views
}

func bulkView(result services.BulkResult) map[string]any {
	return map[string]any{
		"records": transactionViews(result.Records),
		"skipped": result.Skipped,
		"total":   money.Format(result.Total()),
	}
}
