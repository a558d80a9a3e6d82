package store

import (
	"context"

	"ledger/internal/models"
)

const transactionColumns = `id, created_at, sender, receiver, amount, type, memo`

// TransactionStore is the append-only log; seq keeps insertion order.
type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Append(ctx context.Context, record models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, created_at, sender, receiver, amount, type, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.Timestamp, record.Sender, record.Receiver, record.Amount, string(record.Type), record.Memo)
	return err
}

func (s *TransactionStore) List(ctx context.Context) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListFor(ctx context.Context, username string) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE sender = $1 OR receiver = $1
		ORDER BY seq
	`, username)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
