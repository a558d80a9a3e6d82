package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AdminUsername is the privileged account that can never be deleted.
	AdminUsername = "admin"
	// SystemCounterparty stands in for the ledger itself on fine, salary and tax records.
	SystemCounterparty = "SYSTEM"
)

type TransactionType string

const (
	TypeTransfer TransactionType = "transfer"
	TypeFine     TransactionType = "fine"
	TypeSalary   TransactionType = "salary"
	TypeTax      TransactionType = "tax"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeTransfer, TypeFine, TypeSalary, TypeTax:
		return true
	default:
		return false
	}
}

type Account struct {
	ID             int64           `db:"id" json:"id"`
	Username       string          `db:"username" json:"username"`
	CredentialHash string          `db:"credential_hash" json:"-"`
	IsAdmin        bool            `db:"is_admin" json:"is_admin"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// NewAccount is the input for creating an account; the store assigns the id.
type NewAccount struct {
	Username       string
	CredentialHash string
	IsAdmin        bool
	Balance        decimal.Decimal
}

type Transaction struct {
	ID        string          `db:"id" json:"id"`
	Timestamp time.Time       `db:"created_at" json:"timestamp"`
	Sender    string          `db:"sender" json:"sender"`
	Receiver  string          `db:"receiver" json:"receiver"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Type      TransactionType `db:"type" json:"type"`
	Memo      string          `db:"memo" json:"memo,omitempty"`
}

// Involves reports whether username is the sender or receiver of the record.
func (t Transaction) Involves(username string) bool {
	return t.Sender == username || t.Receiver == username
}

type AuditEntry struct {
	ID        string    `db:"id" json:"id"`
	Actor     string    `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	Entity    string    `db:"entity" json:"entity"`
	Data      string    `db:"data" json:"data"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
