package handlers

import (
	"log"
	"net/http"

	"ledger/internal/middleware"
	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/services"
	"ledger/internal/websocket"
)

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Transactions(r.Context())
	if err != nil {
		respondServiceError(w, err, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, transactionViews(pageOf(r, records, 50)))
}

func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalBalance(r.Context())
	if err != nil {
		respondServiceError(w, err, "unable to load summary")
		return
	}
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		respondServiceError(w, err, "unable to load summary")
		return
	}
	records, err := h.service.Transactions(r.Context())
	if err != nil {
		respondServiceError(w, err, "unable to load summary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_balance":     money.Format(total),
		"account_count":     len(accounts),
		"transaction_count": len(records),
	})
}

type fineRequest struct {
	Username string `json:"username" validate:"username"`
	Amount   string `json:"amount" validate:"required"`
	Reason   string `json:"reason" validate:"max=200"`
}

func (h *Handler) AdminFine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req fineRequest
	if !decodeValid(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := h.service.Fine(r.Context(), req.Username, amount, req.Reason)
	if err != nil {
		respondServiceError(w, err, "fine_failed")
		return
	}
	h.recordAudit(r.Context(), actor.Username, "fine", "transaction", map[string]any{
		"transaction_id": record.ID,
		"username":       req.Username,
		"amount":         money.Format(amount),
		"reason":         req.Reason,
	})
	respondJSON(w, http.StatusCreated, transactionView(record))
}

type salaryRequest struct {
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) AdminSalary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req salaryRequest
	if !decodeValid(w, r, &req) {
		return
	}
	amount, err := parseSigned(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.service.PaySalary(r.Context(), amount)
	h.respondBulk(w, r, actor.Username, "salary", map[string]any{"amount": money.Format(amount)}, result, err)
}

type taxRequest struct {
	Percentage string `json:"percentage" validate:"required"`
}

func (h *Handler) AdminTax(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req taxRequest
	if !decodeValid(w, r, &req) {
		return
	}
	percentage, err := parsePercentage(req.Percentage)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.service.CollectTax(r.Context(), percentage)
	h.respondBulk(w, r, actor.Username, "tax", map[string]any{"percentage": percentage.String()}, result, err)
}

// respondBulk audits whatever part of a salary or tax run was applied. A run
// that failed part way still reports the records it made.
func (h *Handler) respondBulk(w http.ResponseWriter, r *http.Request, actor, action string, data map[string]any, result services.BulkResult, err error) {
	if len(result.Records) > 0 || err == nil {
		data["records"] = len(result.Records)
		data["skipped"] = result.Skipped
		data["total"] = money.Format(result.Total())
		h.recordAudit(r.Context(), actor, action, "transaction", data)
	}
	if err != nil {
		log.Printf("%s run incomplete: %v", action, err)
		payload := bulkView(result)
		payload["error"] = action + "_incomplete"
		respondJSON(w, http.StatusInternalServerError, payload)
		return
	}
	respondJSON(w, http.StatusOK, bulkView(result))
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageWindow(r, 50)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("audit list: %v", err)
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	if rows == nil {
		rows = []models.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, rows)
}

// WSBalances upgrades to a websocket that receives the caller's balance after
// every committed change. Browsers cannot set headers here, so the token may
// also come from the query string.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := middleware.Verify(r.Context(), h.cfg.JWTSecret, h.revoker, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.AccountID)
}
