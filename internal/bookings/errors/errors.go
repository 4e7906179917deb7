package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrAlreadyPaid = errors.New("booking payment already recorded")

	ErrSessionsNotPayable = errors.New("booking has sessions that can no longer be paid upfront")

	ErrLocked = errors.New("an identical booking is already being submitted")

	ErrRecurringNotCancellable = errors.New("recurring bookings are cancelled per session")

	ErrNoOccurrences = errors.New("pattern produces no sessions in the requested range")

	ErrSpanTooLong = errors.New("booking range exceeds the maximum span")
)
