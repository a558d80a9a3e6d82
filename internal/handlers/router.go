package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ledger/internal/auth"
	"ledger/internal/config"
	"ledger/internal/middleware"
	"ledger/internal/websocket"
)

type Handler struct {
	cfg     config.Config
	service LedgerService
	audit   AuditStore
	revoker auth.Revoker
	hub     *websocket.Hub
}

func New(cfg config.Config, service LedgerService, audit AuditStore, revoker auth.Revoker, hub *websocket.Hub) *Handler {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	return &Handler{
		cfg:     cfg,
		service: service,
		audit:   audit,
		revoker: revoker,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret, h.revoker)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authed).Get("/me", h.Me)
		r.With(authed).Post("/logout", h.Logout)
	})
	router.With(authed).Get("/transactions", h.ListTransactions)
	router.With(authed).Post("/transactions/transfer", h.Transfer)
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireAdmin(h.service))
		r.Get("/users", h.AdminListUsers)
		r.Post("/users", h.AdminCreateUser)
		r.Put("/users/{username}", h.AdminEditUser)
		r.Delete("/users/{username}", h.AdminDeleteUser)
		r.Get("/transactions", h.AdminListTransactions)
		r.Get("/summary", h.AdminSummary)
		r.Post("/fine", h.AdminFine)
		r.Post("/salary", h.AdminSalary)
		r.Post("/tax", h.AdminTax)
		r.Get("/audit", h.ListAuditLogs)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

func allowedOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
