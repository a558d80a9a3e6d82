package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledger/internal/db"
	"ledger/internal/models"
)

const accountColumns = `id, username, credential_hash, is_admin, balance, created_at`

// AccountStore keeps accounts in PostgreSQL. Removed accounts are soft deleted
// so their ids stay reserved.
type AccountStore struct {
	db DB
	tx db.TxRunner
}

func NewAccountStore(conn DB, tx db.TxRunner) *AccountStore {
	return &AccountStore{db: conn, tx: tx}
}

func (s *AccountStore) Get(ctx context.Context, username string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = $1 AND deleted_at IS NULL
	`, username)
	if err != nil {
		return models.Account{}, notFound(err)
	}
	return row, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id int64) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return models.Account{}, notFound(err)
	}
	return row, nil
}

func (s *AccountStore) List(ctx context.Context) ([]models.Account, error) {
	rows := []models.Account{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) Create(ctx context.Context, input models.NewAccount) (models.Account, error) {
	var created models.Account
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1 AND deleted_at IS NULL)`, input.Username); err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateUsername
		}
		var id int64
		if err := tx.GetContext(ctx, &id, `SELECT COALESCE(MAX(id), 0) + 1 FROM accounts`); err != nil {
			return err
		}
		return tx.GetContext(ctx, &created, `
			INSERT INTO accounts (id, username, credential_hash, is_admin, balance)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+accountColumns, id, input.Username, input.CredentialHash, input.IsAdmin, input.Balance)
	})
	if db.IsUniqueViolation(err) {
		return models.Account{}, models.ErrDuplicateUsername
	}
	if err != nil {
		return models.Account{}, err
	}
	return created, nil
}

// AdjustBalance applies delta in one conditional update so a rejected debit
// never touches the row.
func (s *AccountStore) AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE username = $2 AND deleted_at IS NULL AND balance + $1 >= 0
		RETURNING `+accountColumns, delta, username)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, err
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1 AND deleted_at IS NULL)`, username); err != nil {
		return models.Account{}, err
	}
	if !exists {
		return models.Account{}, models.ErrAccountNotFound
	}
	return models.Account{}, models.ErrInsufficientFunds
}

func (s *AccountStore) Rename(ctx context.Context, username, newUsername string) error {
	if username == "" || newUsername == "" {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET username = $1, updated_at = NOW()
		WHERE username = $2 AND deleted_at IS NULL
	`, newUsername, username)
	if db.IsUniqueViolation(err) {
		return models.ErrDuplicateUsername
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *AccountStore) SetCredential(ctx context.Context, username, credentialHash string) error {
	if username == "" || credentialHash == "" {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET credential_hash = $1, updated_at = NOW()
		WHERE username = $2 AND deleted_at IS NULL
	`, credentialHash, username)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *AccountStore) Remove(ctx context.Context, username string) error {
	if username == models.AdminUsername {
		return models.ErrProtectedAccount
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE username = $1 AND deleted_at IS NULL
	`, username)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// NextID counts soft deleted rows too.
func (s *AccountStore) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT COALESCE(MAX(id), 0) + 1 FROM accounts`)
	return id, err
}
