package services

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/money"
)

// BulkResult lists what a salary or tax run did. Skipped accounts could not
// take the adjustment (missing, or the debit would overdraw) and were left alone.
type BulkResult struct {
	Records []models.Transaction `json:"records"`
	Skipped []string             `json:"skipped"`
}

// Total is the sum moved by the run.
func (r BulkResult) Total() decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(r.Records))
	for _, record := range r.Records {
		amounts = append(amounts, record.Amount)
	}
	return money.Sum(amounts...)
}

// PaySalary credits amount to every account except admin. Accounts are
// visited one at a time; a failure on one does not stop the rest and is
// returned joined with the others.
func (s *LedgerService) PaySalary(ctx context.Context, amount decimal.Decimal) (BulkResult, error) {
	return s.eachAccount(ctx, "salary", func(username string) (models.Transaction, error) {
		return s.applyWithRecord(ctx, "salary", username, amount,
			s.newRecord(models.SystemCounterparty, username, amount, models.TypeSalary, ""))
	})
}

// CollectTax debits balance*percentage/100 from every account except admin,
// using the balance at the moment the account is visited.
func (s *LedgerService) CollectTax(ctx context.Context, percentage decimal.Decimal) (BulkResult, error) {
	rate := money.Rate(percentage)
	return s.eachAccount(ctx, "tax", func(username string) (models.Transaction, error) {
		account, err := s.accounts.Get(ctx, username)
		if err != nil {
			return models.Transaction{}, storageErr("tax: load account", err)
		}
		tax := account.Balance.Mul(rate)
		return s.applyWithRecord(ctx, "tax", username, tax.Neg(),
			s.newRecord(username, models.SystemCounterparty, tax, models.TypeTax, ""))
	})
}

// eachAccount runs fn under mu once per non-admin account listed at the start.
func (s *LedgerService) eachAccount(ctx context.Context, op string, fn func(username string) (models.Transaction, error)) (BulkResult, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return BulkResult{}, storageErr(op+": list accounts", err)
	}
	result := BulkResult{Records: []models.Transaction{}, Skipped: []string{}}
	var errs []error
	for _, account := range accounts {
		if account.Username == models.AdminUsername {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s.mu.Lock()
		record, err := fn(account.Username)
		s.mu.Unlock()
		switch {
		case err == nil:
			result.Records = append(result.Records, record)
		case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrAccountNotFound):
			log.Printf("ledger: %s skipped %q: %v", op, account.Username, err)
			result.Skipped = append(result.Skipped, account.Username)
		default:
			log.Printf("ledger: %s failed for %q: %v", op, account.Username, err)
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}
