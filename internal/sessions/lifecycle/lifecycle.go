// Package lifecycle holds the session state machine. It decides whether a
// transition is allowed; persisting it is the caller's job.
package lifecycle

import (
	"fmt"
	"slices"
	"time"

	sessionserrors "petsit/internal/sessions/errors"
	"petsit/pkg/model"
)

var transitions = map[string][]string{
	model.SessionStatusPending: {
		model.SessionStatusAssigned,
		model.SessionStatusCancelled,
		model.SessionStatusUserCancelled,
	},
	model.SessionStatusAssigned: {
		model.SessionStatusConfirmed,
		model.SessionStatusOngoing,
		model.SessionStatusCancelled,
		model.SessionStatusUserCancelled,
	},
	model.SessionStatusConfirmed: {
		model.SessionStatusUpcoming,
		model.SessionStatusOngoing,
		model.SessionStatusCancelled,
		model.SessionStatusUserCancelled,
	},
	model.SessionStatusUpcoming: {
		model.SessionStatusOngoing,
		model.SessionStatusCancelled,
		model.SessionStatusUserCancelled,
	},
	model.SessionStatusOngoing: {
		model.SessionStatusCompleted,
	},
}

// StartableStatuses may move to ONGOING with a START code.
var StartableStatuses = []string{
	model.SessionStatusAssigned,
	model.SessionStatusConfirmed,
	model.SessionStatusUpcoming,
}

// CancellableStatuses may move to CANCELLED or USERCANCELLED.
var CancellableStatuses = []string{
	model.SessionStatusPending,
	model.SessionStatusAssigned,
	model.SessionStatusConfirmed,
	model.SessionStatusUpcoming,
}

func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// CheckTransition wraps ErrInvalidTransition for a move the machine does not
// allow.
func CheckTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", sessionserrors.ErrInvalidTransition, from, to)
	}
	return nil
}

func IsTerminal(status string) bool {
	switch status {
	case model.SessionStatusCompleted, model.SessionStatusCancelled, model.SessionStatusUserCancelled:
		return true
	}
	return false
}

// Sources lists every status that may transition into to.
func Sources(to string) []string {
	var from []string
	for status, targets := range transitions {
		if slices.Contains(targets, to) {
			from = append(from, status)
		}
	}
	slices.Sort(from)
	return from
}

// CheckRedemption validates a START or END redemption against the session
// and the stored code. It does not compare the presented digits.
func CheckRedemption(session *model.Session, code *model.ServiceCode, codeType string, now time.Time) error {
	switch codeType {
	case model.CodeTypeStart:
		if !slices.Contains(StartableStatuses, session.Status) {
			return sessionserrors.Code(sessionserrors.ReasonSessionNotReady)
		}
	case model.CodeTypeEnd:
		if session.Status != model.SessionStatusOngoing {
			return sessionserrors.Code(sessionserrors.ReasonSessionNotActive)
		}
	default:
		return sessionserrors.Code(sessionserrors.ReasonWrongCodeType)
	}

	if code == nil || code.Type != codeType || code.SessionID != session.ID {
		return sessionserrors.Code(sessionserrors.ReasonWrongCodeType)
	}
	if code.Used {
		return sessionserrors.Code(sessionserrors.ReasonCodeUsed)
	}
	if code.Expired(now) {
		return sessionserrors.Code(sessionserrors.ReasonCodeExpired)
	}
	return nil
}

func CheckCancel(session *model.Session) error {
	if !slices.Contains(CancellableStatuses, session.Status) {
		return sessionserrors.ErrNotCancellable
	}
	return nil
}

// DurationMinutes is the whole minutes between start and end, never negative.
func DurationMinutes(start, end time.Time) int64 {
	return max(int64(end.Sub(start)/time.Minute), 0)
}
