// Package filestore keeps ledger state in plain files under one data directory:
// accounts.json holds the account table and is rewritten atomically on every
// change, transactions.jsonl and audit.jsonl are append-only with one JSON
// object per line.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	accountsFile     = "accounts.json"
	transactionsFile = "transactions.jsonl"
	auditFile        = "audit.jsonl"
)

type Store struct {
	dir          string
	accounts     *AccountStore
	transactions *TransactionLog
	audit        *AuditLog
}

// Open prepares dir and checks that an existing accounts file parses.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	accounts := &AccountStore{path: filepath.Join(dir, accountsFile)}
	if _, err := accounts.load(); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	transactions, err := openTransactionLog(filepath.Join(dir, transactionsFile))
	if err != nil {
		return nil, err
	}
	audit, err := openAuditLog(filepath.Join(dir, auditFile))
	if err != nil {
		transactions.close()
		return nil, err
	}
	return &Store{dir: dir, accounts: accounts, transactions: transactions, audit: audit}, nil
}

func (s *Store) Accounts() *AccountStore { return s.accounts }

func (s *Store) Transactions() *TransactionLog { return s.transactions }

func (s *Store) Audit() *AuditLog { return s.audit }

func (s *Store) Dir() string { return s.dir }

func (s *Store) Close() error {
	return errors.Join(s.transactions.close(), s.audit.close())
}
