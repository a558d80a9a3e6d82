package models

import "errors"

// Errors shared by every Account Store implementation.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrProtectedAccount  = errors.New("account is protected")
)
