package services

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

func checkUsername(username string) error {
	if username == models.SystemCounterparty {
		return ErrReservedUsername
	}
	return nil
}

// Register opens a regular account with the configured starting balance.
func (s *LedgerService) Register(ctx context.Context, username, credentialHash string) (models.Account, error) {
	return s.AddAccount(ctx, models.NewAccount{
		Username:       username,
		CredentialHash: credentialHash,
		Balance:        s.registrationBalance,
	})
}

func (s *LedgerService) AddAccount(ctx context.Context, input models.NewAccount) (models.Account, error) {
	if err := checkUsername(input.Username); err != nil {
		return models.Account{}, err
	}
	if input.Balance.IsNegative() {
		return models.Account{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, err := s.accounts.Create(ctx, input)
	return account, storageErr("create account", err)
}

// EditAccount renames the account and then changes its credential; empty
// values are left as they are. A failed credential write undoes the rename.
// Past records keep the old username.
func (s *LedgerService) EditAccount(ctx context.Context, username, newUsername, newCredentialHash string) (models.Account, error) {
	rename := newUsername != "" && newUsername != username
	if rename {
		if username == models.AdminUsername {
			return models.Account{}, ErrProtectedAccount
		}
		if err := checkUsername(newUsername); err != nil {
			return models.Account{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.accounts.Get(ctx, username); err != nil {
		return models.Account{}, storageErr("edit account", err)
	}
	current := username
	if rename {
		_, err := s.accounts.Get(ctx, newUsername)
		if err == nil {
			return models.Account{}, ErrDuplicateUsername
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return models.Account{}, storageErr("edit account", err)
		}
		if err := s.accounts.Rename(ctx, username, newUsername); err != nil {
			return models.Account{}, storageErr("edit account: rename", err)
		}
		current = newUsername
	}
	if newCredentialHash != "" {
		if err := s.accounts.SetCredential(ctx, current, newCredentialHash); err != nil {
			if !rename {
				return models.Account{}, storageErr("edit account: credential", err)
			}
			if rbErr := s.accounts.Rename(context.WithoutCancel(ctx), current, username); rbErr != nil {
				log.Printf("ledger: CRITICAL edit account: could not restore username %q from %q: %v", username, current, rbErr)
				return models.Account{}, &StorageError{Op: "edit account: credential", Err: err, RollbackErr: rbErr}
			}
			return models.Account{}, storageErr("edit account: credential", err)
		}
	}
	account, err := s.accounts.Get(ctx, current)
	return account, storageErr("edit account", err)
}

func (s *LedgerService) DeleteAccount(ctx context.Context, username string) error {
	if username == models.AdminUsername {
		return ErrProtectedAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return storageErr("delete account", s.accounts.Remove(ctx, username))
}

// EnsureAdmin creates the admin account on first start. An existing admin is
// returned untouched.
func (s *LedgerService) EnsureAdmin(ctx context.Context, credentialHash string, balance decimal.Decimal) (models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.accounts.Get(ctx, models.AdminUsername)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return models.Account{}, false, storageErr("ensure admin", err)
	}
	created, err := s.accounts.Create(ctx, models.NewAccount{
		Username:       models.AdminUsername,
		CredentialHash: credentialHash,
		IsAdmin:        true,
		Balance:        balance,
	})
	if err != nil {
		return models.Account{}, false, storageErr("ensure admin", err)
	}
	return created, true, nil
}

// NextAccountID reports the id the next created account will receive.
func (s *LedgerService) NextAccountID(ctx context.Context) (int64, error) {
	id, err := s.accounts.NextID(ctx)
	return id, storageErr("next account id", err)
}
