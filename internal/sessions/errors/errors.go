package errors

import "errors"

var (
	ErrNotFound = errors.New("session not found")

	ErrCodeNotFound = errors.New("service code not found")

	ErrInvalidOrExpiredCode = errors.New("service code is invalid or expired")

	ErrNotCancellable = errors.New("session cannot be cancelled in its current state")

	ErrInvalidTransition = errors.New("session status transition not allowed")

	// ErrStatusChanged means a conditional update lost a race with another
	// transition on the same session.
	ErrStatusChanged = errors.New("session status changed concurrently")

	ErrCodeAlreadyUsed = errors.New("service code already used")

	ErrAlreadyPaid = errors.New("session payment already recorded")
)

// Code rejection reasons reported to clients.
const (
	ReasonCodeMismatch     = "code_mismatch"
	ReasonCodeUsed         = "code_used"
	ReasonCodeExpired      = "code_expired"
	ReasonWrongCodeType    = "wrong_code_type"
	ReasonSessionNotReady  = "session_not_startable"
	ReasonSessionNotActive = "session_not_ongoing"
)

// CodeError is a rejected redemption. It matches ErrInvalidOrExpiredCode.
type CodeError struct {
	Reason string
}

func (e *CodeError) Error() string {
	return ErrInvalidOrExpiredCode.Error() + ": " + e.Reason
}

func (e *CodeError) Unwrap() error {
	return ErrInvalidOrExpiredCode
}

func Code(reason string) error {
	return &CodeError{Reason: reason}
}
