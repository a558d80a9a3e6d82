package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/auth"
	"ledger/internal/models"
	"ledger/internal/money"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		respondServiceError(w, err, "unable to load users")
		return
	}
	normalized := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		normalized = append(normalized, accountView(account))
	}
	respondJSON(w, http.StatusOK, normalized)
}

type createUserRequest struct {
	Username       string `json:"username" validate:"username"`
	Password       string `json:"password" validate:"min=8"`
	InitialBalance string `json:"initial_balance"`
	IsAdmin        bool   `json:"is_admin"`
}

func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	balance, err := parseBalance(req.InitialBalance)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	account, err := h.service.AddAccount(r.Context(), models.NewAccount{
		Username:       req.Username,
		CredentialHash: passwordHash,
		IsAdmin:        req.IsAdmin,
		Balance:        balance,
	})
	if err != nil {
		respondServiceError(w, err, "unable to create user")
		return
	}
	h.recordAudit(r.Context(), actor.Username, "add_user", "account", map[string]any{
		"account_id":      account.ID,
		"username":        account.Username,
		"is_admin":        account.IsAdmin,
		"initial_balance": money.Format(account.Balance),
	})
	respondJSON(w, http.StatusCreated, accountView(account))
}

type editUserRequest struct {
	NewUsername string `json:"new_username" validate:"omitempty,username"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8"`
}

func (h *Handler) AdminEditUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")
	var req editUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var passwordHash string
	if req.NewPassword != "" {
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to secure password")
			return
		}
		passwordHash = hash
	}
	account, err := h.service.EditAccount(r.Context(), username, req.NewUsername, passwordHash)
	if err != nil {
		respondServiceError(w, err, "unable to edit user")
		return
	}
	h.recordAudit(r.Context(), actor.Username, "edit_user", "account", map[string]any{
		"account_id":       account.ID,
		"username":         username,
		"new_username":     req.NewUsername,
		"password_changed": passwordHash != "",
	})
	respondJSON(w, http.StatusOK, accountView(account))
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")
	if err := h.service.DeleteAccount(r.Context(), username); err != nil {
		respondServiceError(w, err, "unable to delete user")
		return
	}
	h.recordAudit(r.Context(), actor.Username, "delete_user", "account", map[string]any{
		"username": username,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
