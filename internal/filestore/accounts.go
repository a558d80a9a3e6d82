package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

// flexBool accepts true, "true", "True" and the other strconv.ParseBool forms.
// Older files wrote the admin flag as a string.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*b = false
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("is_admin: %q is not a boolean", raw)
	}
	*b = flexBool(v)
	return nil
}

type accountRecord struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	CredentialHash string          `json:"credential_hash"`
	IsAdmin        flexBool        `json:"is_admin"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (r accountRecord) model() models.Account {
	return models.Account{
		ID:             r.ID,
		Username:       r.Username,
		CredentialHash: r.CredentialHash,
		IsAdmin:        bool(r.IsAdmin),
		Balance:        r.Balance,
		CreatedAt:      r.CreatedAt,
	}
}

type accountTable struct {
	NextID   int64           `json:"next_id"`
	Accounts []accountRecord `json:"accounts"`
}

func (t *accountTable) find(username string) int {
	for i := range t.Accounts {
		if t.Accounts[i].Username == username {
			return i
		}
	}
	return -1
}

// nextID never goes below the persisted high-water mark, so ids of removed
// accounts are not handed out again.
func (t *accountTable) nextID() int64 {
	next := int64(1)
	for _, a := range t.Accounts {
		if a.ID+1 > next {
			next = a.ID + 1
		}
	}
	if t.NextID > next {
		next = t.NextID
	}
	return next
}

// AccountStore reads the whole accounts file, applies one change and writes
// it back before returning.
type AccountStore struct {
	mu   sync.Mutex
	path string
}

func (s *AccountStore) load() (*accountTable, error) {
	table := &accountTable{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(s.path), err)
	}
	return table, nil
}

func (s *AccountStore) save(table *accountTable) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *AccountStore) Get(_ context.Context, username string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return models.Account{}, err
	}
	i := table.find(username)
	if i < 0 {
		return models.Account{}, models.ErrAccountNotFound
	}
	return table.Accounts[i].model(), nil
}

func (s *AccountStore) GetByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return models.Account{}, err
	}
	for _, a := range table.Accounts {
		if a.ID == id {
			return a.model(), nil
		}
	}
	return models.Account{}, models.ErrAccountNotFound
}

func (s *AccountStore) List(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0, len(table.Accounts))
	for _, a := range table.Accounts {
		accounts = append(accounts, a.model())
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (s *AccountStore) Create(_ context.Context, input models.NewAccount) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return models.Account{}, err
	}
	if table.find(input.Username) >= 0 {
		return models.Account{}, models.ErrDuplicateUsername
	}
	record := accountRecord{
		ID:             table.nextID(),
		Username:       input.Username,
		CredentialHash: input.CredentialHash,
		IsAdmin:        flexBool(input.IsAdmin),
		Balance:        input.Balance,
		CreatedAt:      time.Now().UTC(),
	}
	table.Accounts = append(table.Accounts, record)
	table.NextID = record.ID + 1
	if err := s.save(table); err != nil {
		return models.Account{}, err
	}
	return record.model(), nil
}

func (s *AccountStore) AdjustBalance(_ context.Context, username string, delta decimal.Decimal) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return models.Account{}, err
	}
	i := table.find(username)
	if i < 0 {
		return models.Account{}, models.ErrAccountNotFound
	}
	next := table.Accounts[i].Balance.Add(delta)
	if next.IsNegative() {
		return models.Account{}, models.ErrInsufficientFunds
	}
	table.Accounts[i].Balance = next
	if err := s.save(table); err != nil {
		return models.Account{}, err
	}
	return table.Accounts[i].model(), nil
}

func (s *AccountStore) Rename(_ context.Context, username, newUsername string) error {
	if username == "" || newUsername == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return err
	}
	i := table.find(username)
	if i < 0 {
		return models.ErrAccountNotFound
	}
	if username == newUsername {
		return nil
	}
	if table.find(newUsername) >= 0 {
		return models.ErrDuplicateUsername
	}
	table.Accounts[i].Username = newUsername
	return s.save(table)
}

func (s *AccountStore) SetCredential(_ context.Context, username, credentialHash string) error {
	if username == "" || credentialHash == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return err
	}
	i := table.find(username)
	if i < 0 {
		return models.ErrAccountNotFound
	}
	table.Accounts[i].CredentialHash = credentialHash
	return s.save(table)
}

func (s *AccountStore) Remove(_ context.Context, username string) error {
	if username == models.AdminUsername {
		return models.ErrProtectedAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return err
	}
	i := table.find(username)
	if i < 0 {
		return models.ErrAccountNotFound
	}
	table.NextID = table.nextID()
	table.Accounts = append(table.Accounts[:i], table.Accounts[i+1:]...)
	return s.save(table)
}

func (s *AccountStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.load()
	if err != nil {
		return 0, err
	}
	return table.nextID(), nil
}
