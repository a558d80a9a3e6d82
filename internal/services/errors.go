package services

import (
	"errors"
	"fmt"

	"ledger/internal/models"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrReceiverNotFound  = errors.New("receiver not found")
	ErrReservedUsername  = errors.New("username is reserved")
	ErrInsufficientFunds = models.ErrInsufficientFunds
	ErrAccountNotFound   = models.ErrAccountNotFound
	ErrDuplicateUsername = models.ErrDuplicateUsername
	ErrProtectedAccount  = models.ErrProtectedAccount
)

// StorageError wraps a store failure that is not a ledger rule violation.
// RollbackErr is set when undoing an already applied balance change also
// failed, leaving balances and the log out of step.
type StorageError struct {
	Op          string
	Err         error
	RollbackErr error
}

func (e *StorageError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("%s: %v (rollback failed: %v)", e.Op, e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Inconsistent() bool {
	return e.RollbackErr != nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrReceiverNotFound,
		ErrReservedUsername,
		ErrInsufficientFunds,
		ErrAccountNotFound,
		ErrDuplicateUsername,
		ErrProtectedAccount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storageErr passes ledger rule violations through and wraps everything else.
func storageErr(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
