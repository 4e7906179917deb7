// Package pricing re-derives booking totals on the server and rejects client
// totals that disagree.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"petsit/internal/recurrence"
	"petsit/pkg/money"

	"github.com/shopspring/decimal"
)

var ErrPriceMismatch = errors.New("declared total does not match expected total")

// Tolerance absorbs client side rounding, in major units.
var Tolerance = decimal.RequireFromString("0.01")

type MismatchError struct {
	Expected int64
	Declared decimal.Decimal
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, declared %s", ErrPriceMismatch, money.Format(e.Expected), e.Declared.StringFixed(2))
}

func (e *MismatchError) Unwrap() error {
	return ErrPriceMismatch
}

// Quote is the priced schedule for one booking. Estimates, validation and
// session materialisation all read from the same Quote.
type Quote struct {
	Occurrences []recurrence.Occurrence
	UnitPrice   int64
	Total       int64
}

// NewQuote prices a booking. A nil rule is a one-time booking with a single
// occurrence on start.
func NewQuote(rule *recurrence.Rule, start, end time.Time, unitPrice int64) Quote {
	var occurrences []recurrence.Occurrence
	if rule == nil {
		occurrences = []recurrence.Occurrence{{Date: recurrence.CivilDate(start), SequenceNumber: 1}}
	} else {
		occurrences = recurrence.Generate(*rule, start, end)
	}

	return Quote{
		Occurrences: occurrences,
		UnitPrice:   unitPrice,
		Total:       unitPrice * int64(len(occurrences)),
	}
}

func ExpectedTotal(rule *recurrence.Rule, start, end time.Time, unitPrice int64) int64 {
	return NewQuote(rule, start, end, unitPrice).Total
}

// Validate fails closed: any deviation beyond Tolerance is a mismatch.
func Validate(expected int64, declared decimal.Decimal) error {
	diff := money.ToMajor(expected).Sub(declared).Abs()
	if diff.GreaterThan(Tolerance) {
		return &MismatchError{Expected: expected, Declared: declared}
	}
	return nil
}
