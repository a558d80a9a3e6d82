package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/websocket"
)

type AccountStore interface {
	Get(ctx context.Context, username string) (models.Account, error)
	GetByID(ctx context.Context, id int64) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Create(ctx context.Context, input models.NewAccount) (models.Account, error)
	AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (models.Account, error)
	Rename(ctx context.Context, username, newUsername string) error
	SetCredential(ctx context.Context, username, credentialHash string) error
	Remove(ctx context.Context, username string) error
	NextID(ctx context.Context) (int64, error)
}

type TransactionLog interface {
	Append(ctx context.Context, record models.Transaction) error
	List(ctx context.Context) ([]models.Transaction, error)
	ListFor(ctx context.Context, username string) ([]models.Transaction, error)
}

type BalanceHub interface {
	BroadcastBalance(accountID int64, update websocket.BalanceUpdate)
}

type noopHub struct{}

func (noopHub) BroadcastBalance(int64, websocket.BalanceUpdate) {}

// LedgerService applies every balance change together with its transaction
// record. mu serialises mutations so a check and the write that follows it
// see the same state.
type LedgerService struct {
	mu                  sync.Mutex
	accounts            AccountStore
	transactions        TransactionLog
	hub                 BalanceHub
	registrationBalance decimal.Decimal
	lastStamp           time.Time
	now                 func() time.Time
}

func NewLedgerService(accounts AccountStore, transactions TransactionLog, hub BalanceHub, registrationBalance decimal.Decimal) *LedgerService {
	if hub == nil {
		hub = noopHub{}
	}
	return &LedgerService{
		accounts:            accounts,
		transactions:        transactions,
		hub:                 hub,
		registrationBalance: registrationBalance,
		now:                 time.Now,
	}
}

// Transfer moves amount from sender to receiver and logs one transfer record.
// A failed credit or log append puts the debited funds back.
func (s *LedgerService) Transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.accounts.Get(ctx, sender)
	if err != nil {
		return models.Transaction{}, storageErr("transfer: load sender", err)
	}
	if from.Balance.LessThan(amount) {
		return models.Transaction{}, ErrInsufficientFunds
	}
	debited, err := s.accounts.AdjustBalance(ctx, sender, amount.Neg())
	if err != nil {
		return models.Transaction{}, storageErr("transfer: debit sender", err)
	}
	credited, err := s.accounts.AdjustBalance(ctx, receiver, amount)
	if err != nil {
		rollbackErr := s.revert(ctx, "transfer", sender, amount)
		if errors.Is(err, ErrAccountNotFound) {
			if rollbackErr != nil {
				return models.Transaction{}, &StorageError{Op: "transfer: credit receiver", Err: ErrReceiverNotFound, RollbackErr: rollbackErr}
			}
			return models.Transaction{}, ErrReceiverNotFound
		}
		return models.Transaction{}, &StorageError{Op: "transfer: credit receiver", Err: err, RollbackErr: rollbackErr}
	}

	record := s.newRecord(sender, receiver, amount, models.TypeTransfer, "")
	if err := s.transactions.Append(ctx, record); err != nil {
		rollbackErr := errors.Join(
			s.revert(ctx, "transfer", receiver, amount.Neg()),
			s.revert(ctx, "transfer", sender, amount),
		)
		return models.Transaction{}, &StorageError{Op: "transfer: append record", Err: err, RollbackErr: rollbackErr}
	}
	s.broadcast(debited, record.Type)
	s.broadcast(credited, record.Type)
	return record, nil
}

// Fine debits username and logs a fine payable to the system; reason is kept as the memo.
func (s *LedgerService) Fine(ctx context.Context, username string, amount decimal.Decimal, reason string) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyWithRecord(ctx, "fine", username, amount.Neg(),
		s.newRecord(username, models.SystemCounterparty, amount, models.TypeFine, reason))
}

// applyWithRecord adjusts one balance and appends record, undoing the
// adjustment when the append fails. Callers hold mu.
func (s *LedgerService) applyWithRecord(ctx context.Context, op, username string, delta decimal.Decimal, record models.Transaction) (models.Transaction, error) {
	updated, err := s.accounts.AdjustBalance(ctx, username, delta)
	if err != nil {
		return models.Transaction{}, storageErr(op+": adjust balance", err)
	}
	if err := s.transactions.Append(ctx, record); err != nil {
		return models.Transaction{}, &StorageError{
			Op:          op + ": append record",
			Err:         err,
			RollbackErr: s.revert(ctx, op, username, delta.Neg()),
		}
	}
	s.broadcast(updated, record.Type)
	return record, nil
}

// revert applies a compensating adjustment. It runs even if ctx was cancelled
// since the original change has already been committed.
func (s *LedgerService) revert(ctx context.Context, op, username string, delta decimal.Decimal) error {
	_, err := s.accounts.AdjustBalance(context.WithoutCancel(ctx), username, delta)
	if err != nil {
		log.Printf("ledger: CRITICAL %s compensation for %q (%s) failed: %v", op, username, delta, err)
	}
	return err
}

// newRecord stamps a record with a time no earlier than the previous one.
// Callers hold mu.
func (s *LedgerService) newRecord(sender, receiver string, amount decimal.Decimal, kind models.TransactionType, memo string) models.Transaction {
	stamp := s.now().UTC()
	if stamp.Before(s.lastStamp) {
		stamp = s.lastStamp
	}
	s.lastStamp = stamp
	return models.Transaction{
		ID:        uuid.NewString(),
		Timestamp: stamp,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Type:      kind,
		Memo:      memo,
	}
}

func (s *LedgerService) broadcast(account models.Account, kind models.TransactionType) {
	s.hub.BroadcastBalance(account.ID, websocket.BalanceUpdate{
		Username: account.Username,
		Balance:  money.Format(account.Balance),
		Reason:   string(kind),
	})
}

func (s *LedgerService) Account(ctx context.Context, username string) (models.Account, error) {
	account, err := s.accounts.Get(ctx, username)
	return account, storageErr("load account", err)
}

func (s *LedgerService) AccountByID(ctx context.Context, id int64) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	return account, storageErr("load account", err)
}

func (s *LedgerService) Accounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.accounts.List(ctx)
	return accounts, storageErr("list accounts", err)
}

// TotalBalance sums every account balance, admin included.
func (s *LedgerService) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return decimal.Zero, storageErr("total balance", err)
	}
	balances := make([]decimal.Decimal, 0, len(accounts))
	for _, a := range accounts {
		balances = append(balances, a.Balance)
	}
	return money.Sum(balances...), nil
}

func (s *LedgerService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	records, err := s.transactions.List(ctx)
	return records, storageErr("list transactions", err)
}

func (s *LedgerService) TransactionsFor(ctx context.Context, username string) ([]models.Transaction, error) {
	records, err := s.transactions.ListFor(ctx, username)
	return records, storageErr("list transactions", err)
}
