package refunds

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		pct       string
		deduction int64
		refund    int64
	}{
		{"ten percent of 1000.00", 100000, "10", 10000, 90000},
		{"zero percent", 50000, "0", 0, 50000},
		{"full deduction", 50000, "100", 50000, 0},
		{"fractional percent rounds half up", 1005, "10", 101, 904},
		{"fractional rate", 99999, "12.5", 12500, 87499},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Calculate(tt.amount, decimal.RequireFromString(tt.pct))
			require.NoError(t, err)

			assert.Equal(t, tt.deduction, b.Deduction)
			assert.Equal(t, tt.refund, b.Refund)
			assert.Equal(t, tt.amount, b.Deduction+b.Refund)
		})
	}
}

func TestCalculate_RejectsOutOfRangePercent(t *testing.T) {
	for _, pct := range []string{"-1", "100.01"} {
		_, err := Calculate(1000, decimal.RequireFromString(pct))
		assert.ErrorIs(t, err, ErrInvalidPercent, pct)
	}
}
