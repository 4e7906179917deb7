package errors

import "errors"

var (
	ErrWalletNotFound = errors.New("wallet not found")

	ErrNoSitter = errors.New("session has no assigned sitter")

	// ErrEntryNotPending means another release already moved the entry.
	ErrEntryNotPending = errors.New("ledger entry is not pending")

	ErrInsufficientPending = errors.New("wallet pending amount lower than release")
)
