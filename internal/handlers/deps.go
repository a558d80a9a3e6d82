package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/services"
)

type LedgerService interface {
	Transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (models.Transaction, error)
	Fine(ctx context.Context, username string, amount decimal.Decimal, reason string) (models.Transaction, error)
	PaySalary(ctx context.Context, amount decimal.Decimal) (services.BulkResult, error)
	CollectTax(ctx context.Context, percentage decimal.Decimal) (services.BulkResult, error)
	Register(ctx context.Context, username, credentialHash string) (models.Account, error)
	AddAccount(ctx context.Context, input models.NewAccount) (models.Account, error)
	EditAccount(ctx context.Context, username, newUsername, newCredentialHash string) (models.Account, error)
	DeleteAccount(ctx context.Context, username string) error
	Account(ctx context.Context, username string) (models.Account, error)
	AccountByID(ctx context.Context, id int64) (models.Account, error)
	Accounts(ctx context.Context) ([]models.Account, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
	TransactionsFor(ctx context.Context, username string) ([]models.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, actor, action, entity, data string) error
	List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error)
}
