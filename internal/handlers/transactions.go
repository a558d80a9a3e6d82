package handlers

import "net/http"

type transferRequest struct {
	Receiver string `json:"receiver" validate:"username"`
	Amount   string `json:"amount" validate:"required"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeValid(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	record, err := h.service.Transfer(r.Context(), account.Username, req.Receiver, amount)
	if err != nil {
		respondServiceError(w, err, "transfer_failed")
		return
	}
	respondJSON(w, http.StatusCreated, transactionView(record))
}

// ListTransactions returns the caller's records in the order they were made.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	records, err := h.service.TransactionsFor(r.Context(), account.Username)
	if err != nil {
		respondServiceError(w, err, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, transactionViews(pageOf(r, records, 50)))
}
