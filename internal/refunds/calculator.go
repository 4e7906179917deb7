// Package refunds computes cancellation refunds and drives them through the
// payment gateway.
package refunds

import (
	"errors"

	"petsit/pkg/money"

	"github.com/shopspring/decimal"
)

var ErrInvalidPercent = errors.New("deduction percent must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// Breakdown splits a paid amount into what is kept and what is returned.
// Deduction + Refund always equals Requested.
type Breakdown struct {
	Requested        int64
	DeductionPercent decimal.Decimal
	Deduction        int64
	Refund           int64
}

func Calculate(amount int64, pct decimal.Decimal) (Breakdown, error) {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return Breakdown{}, ErrInvalidPercent
	}

	deduction := money.Percent(amount, pct)
	return Breakdown{
		Requested:        amount,
		DeductionPercent: pct,
		Deduction:        deduction,
		Refund:           amount - deduction,
	}, nil
}
