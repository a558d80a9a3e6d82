package services

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/websocket"
)

// memAccounts is an in-memory AccountStore. adjustFn, when set, runs before
// the real adjustment and can fail it. credentialErr fails SetCredential.
type memAccounts struct {
	mu            sync.Mutex
	byName        map[string]models.Account
	nextID        int64
	adjustFn      func(username string, delta decimal.Decimal) error
	listErr       error
	credentialErr error
}

func newMemAccounts(balances map[string]int64) *memAccounts {
	m := &memAccounts{byName: map[string]models.Account{}, nextID: 1}
	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.byName[name] = models.Account{
			ID:       m.nextID,
			Username: name,
			IsAdmin:  name == models.AdminUsername,
			Balance:  decimal.NewFromInt(balances[name]),
		}
		m.nextID++
	}
	return m
}

func (m *memAccounts) balance(username string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byName[username].Balance
}

func (m *memAccounts) Get(_ context.Context, username string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byName[username]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return account, nil
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byName {
		if account.ID == id {
			return account, nil
		}
	}
	return models.Account{}, models.ErrAccountNotFound
}

func (m *memAccounts) List(_ context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	accounts := make([]models.Account, 0, len(m.byName))
	for _, account := range m.byName {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *memAccounts) Create(_ context.Context, input models.NewAccount) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[input.Username]; ok {
		return models.Account{}, models.ErrDuplicateUsername
	}
	account := models.Account{
		ID:             m.nextID,
		Username:       input.Username,
		CredentialHash: input.CredentialHash,
		IsAdmin:        input.IsAdmin,
		Balance:        input.Balance,
	}
	m.nextID++
	m.byName[input.Username] = account
	return account, nil
}

func (m *memAccounts) AdjustBalance(_ context.Context, username string, delta decimal.Decimal) (models.Account, error) {
	if m.adjustFn != nil {
		if err := m.adjustFn(username, delta); err != nil {
			return models.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byName[username]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return models.Account{}, models.ErrInsufficientFunds
	}
	account.Balance = next
	m.byName[username] = account
	return account, nil
}

func (m *memAccounts) Rename(_ context.Context, username, newUsername string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byName[username]
	if !ok {
		return models.ErrAccountNotFound
	}
	if _, taken := m.byName[newUsername]; taken {
		return models.ErrDuplicateUsername
	}
	delete(m.byName, username)
	account.Username = newUsername
	m.byName[newUsername] = account
	return nil
}

func (m *memAccounts) SetCredential(_ context.Context, username, credentialHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credentialErr != nil {
		return m.credentialErr
	}
	account, ok := m.byName[username]
	if !ok {
		return models.ErrAccountNotFound
	}
	account.CredentialHash = credentialHash
	m.byName[username] = account
	return nil
}

func (m *memAccounts) Remove(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if username == models.AdminUsername {
		return models.ErrProtectedAccount
	}
	if _, ok := m.byName[username]; !ok {
		return models.ErrAccountNotFound
	}
	delete(m.byName, username)
	return nil
}

func (m *memAccounts) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID, nil
}

type memLog struct {
	mu        sync.Mutex
	records   []models.Transaction
	appendErr error
}

func (l *memLog) Append(_ context.Context, record models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.records = append(l.records, record)
	return nil
}

func (l *memLog) List(context.Context) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Transaction(nil), l.records...), nil
}

func (l *memLog) ListFor(_ context.Context, username string) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Transaction
	for _, record := range l.records {
		if record.Involves(username) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (l *memLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type stubHub struct {
	mu    sync.Mutex
	calls map[int64][]websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(accountID int64, update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[int64][]websocket.BalanceUpdate{}
	}
	s.calls[accountID] = append(s.calls[accountID], update)
}

func newTestService(balances map[string]int64) (*LedgerService, *memAccounts, *memLog, *stubHub) {
	accounts := newMemAccounts(balances)
	log := &memLog{}
	hub := &stubHub{}
	return NewLedgerService(accounts, log, hub, decimal.NewFromInt(1000)), accounts, log, hub
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
