package handlers

import (
	"errors"
	"log"
	"net/http"

	"ledger/internal/auth"
	"ledger/internal/middleware"
	"ledger/internal/money"
	"ledger/internal/services"
)

type registerRequest struct {
	Username        string `json:"username" validate:"username"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeValid(w, r, &req) {
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	account, err := h.service.Register(r.Context(), req.Username, passwordHash)
	if err != nil {
		respondServiceError(w, err, "registration failed")
		return
	}
	h.recordAudit(r.Context(), account.Username, "register", "account", map[string]any{
		"account_id": account.ID,
		"ip":         r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	token, err := auth.GenerateToken(h.cfg.JWTSecret, account.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"token":   token,
		"account": accountView(account),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}
	account, err := h.service.Account(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("login %q: %v", req.Username, err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPassword(account.CredentialHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.recordAudit(r.Context(), account.Username, "login", "account", map[string]any{
		"account_id": account.ID,
		"ip":         r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	token, err := auth.GenerateToken(h.cfg.JWTSecret, account.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token": token,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       account.ID,
		"username": account.Username,
		"is_admin": account.IsAdmin,
		"balance":  money.Format(account.Balance),
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.revoker.Revoke(r.Context(), claims.ID, claims.Remaining()); err != nil {
		log.Printf("logout: revoke token for account %d: %v", claims.AccountID, err)
		respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
