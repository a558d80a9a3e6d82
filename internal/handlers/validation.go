package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"ledger/internal/money"
	"ledger/internal/validator"
)

var errInvalidAmount = errors.New("invalid_amount")
var errInvalidPercentage = errors.New("invalid_percentage")

// parseAmount accepts a strictly positive amount.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := money.Parse(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, errInvalidAmount
	}
	return amount, nil
}

// parseBalance accepts zero or more; an empty value means zero.
func parseBalance(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	balance, err := money.Parse(raw)
	if err != nil || balance.IsNegative() {
		return decimal.Zero, errInvalidAmount
	}
	return balance, nil
}

// parseSigned accepts any well formed amount. Salary has no bounds.
func parseSigned(raw string) (decimal.Decimal, error) {
	amount, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}
	return amount, nil
}

func parsePercentage(raw string) (decimal.Decimal, error) {
	percentage, err := money.ParsePercentage(raw)
	if err != nil {
		return decimal.Zero, errInvalidPercentage
	}
	return percentage, nil
}

// decodeValid reads a JSON body into dst and runs its validate tags. On
// failure the response has already been written.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if err := validator.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

const (
	maxPageLimit = 200
	maxPage      = 1 << 20
)

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// pageWindow reads limit and page from the query string, capped so the
// offset cannot overflow.
func pageWindow(r *http.Request, defaultLimit int) (limit, offset int) {
	query := r.URL.Query()
	limit = min(parseInt(query.Get("limit"), defaultLimit), maxPageLimit)
	page := min(parseInt(query.Get("page"), 1), maxPage)
	return limit, (page - 1) * limit
}

// pageOf returns the page/limit window of the query string over items.
func pageOf[T any](r *http.Request, items []T, defaultLimit int) []T {
	limit, offset := pageWindow(r, defaultLimit)
	if offset >= len(items) {
		return items[:0]
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
