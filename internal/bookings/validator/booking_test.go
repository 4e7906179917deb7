package validator

import (
	"testing"

	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecurring() *model.BookingRequest {
	return &model.BookingRequest{
		OwnerID:       "owner-1",
		PetID:         "pet-1",
		ServiceID:     "svc-walk",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-31",
		TimeOfDay:     "09:30",
		TimeZone:      "Asia/Kolkata",
		Recurring:     true,
		Pattern:       "weekly_1_monday,thursday",
		DeclaredTotal: decimal.RequireFromString("4500"),
		PaymentMode:   model.PaymentModeUpfront,
	}
}

func TestValidateCreate(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), 366)

	tests := []struct {
		name      string
		mutate    func(r *model.BookingRequest)
		wantField string
	}{
		{name: "valid recurring", mutate: func(*model.BookingRequest) {}},
		{
			name: "valid one-time",
			mutate: func(r *model.BookingRequest) {
				r.Recurring, r.Pattern, r.EndDate = false, "", ""
			},
		},
		{name: "missing pet", mutate: func(r *model.BookingRequest) { r.PetID = "" }, wantField: "PetID"},
		{name: "bad date", mutate: func(r *model.BookingRequest) { r.StartDate = "01/02/2024" }, wantField: "StartDate"},
		{name: "bad time of day", mutate: func(r *model.BookingRequest) { r.TimeOfDay = "24:00" }, wantField: "TimeOfDay"},
		{name: "time without minutes", mutate: func(r *model.BookingRequest) { r.TimeOfDay = "9" }, wantField: "TimeOfDay"},
		{name: "unknown zone", mutate: func(r *model.BookingRequest) { r.TimeZone = "Mars/Olympus" }, wantField: "TimeZone"},
		{name: "zero total", mutate: func(r *model.BookingRequest) { r.DeclaredTotal = decimal.Zero }, wantField: "DeclaredTotal"},
		{name: "negative total", mutate: func(r *model.BookingRequest) { r.DeclaredTotal = decimal.RequireFromString("-1") }, wantField: "DeclaredTotal"},
		{name: "bad payment mode", mutate: func(r *model.BookingRequest) { r.PaymentMode = "later" }, wantField: "PaymentMode"},
		{name: "recurring without pattern", mutate: func(r *model.BookingRequest) { r.Pattern = "" }, wantField: "Pattern"},
		{name: "recurring without end", mutate: func(r *model.BookingRequest) { r.EndDate = "" }, wantField: "EndDate"},
		{
			name: "one-time with pattern",
			mutate: func(r *model.BookingRequest) {
				r.Recurring, r.EndDate = false, ""
			},
			wantField: "Pattern",
		},
		{name: "span too long", mutate: func(r *model.BookingRequest) { r.EndDate = "2025-06-01" }, wantField: "EndDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRecurring()
			tt.mutate(req)

			err := v.ValidateCreate(req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}
}

func TestValidateCreate_Normalizes(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), 366)

	req := validRecurring()
	req.PetID = "  pet-1 "
	req.Pattern = " Weekly_1_ Mon, Thu "
	req.PaymentMode = " UPFRONT "

	require.NoError(t, v.ValidateCreate(req))
	assert.Equal(t, "pet-1", req.PetID)
	assert.Equal(t, "weekly_1_mon,thu", req.Pattern)
	assert.Equal(t, model.PaymentModeUpfront, req.PaymentMode)
}

func TestValidatePayment(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), 366)

	req := &model.PaymentRecord{PaymentRef: " pi_123 "}
	require.NoError(t, v.ValidatePayment(req))
	assert.Equal(t, "pi_123", req.PaymentRef)

	assert.Error(t, v.ValidatePayment(&model.PaymentRecord{}))
}

func TestValidateEstimate(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), 31)

	req := &model.EstimateRequest{
		ServiceID: " svc-walk ",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Recurring: true,
		Pattern:   "MONTHLY_1_2_SAT",
	}
	require.NoError(t, v.ValidateEstimate(req))
	assert.Equal(t, "svc-walk", req.ServiceID)
	assert.Equal(t, "monthly_1_2_sat", req.Pattern)

	req.EndDate = "2024-03-31"
	var verrs ValidationErrors
	require.ErrorAs(t, v.ValidateEstimate(req), &verrs)
	assert.Equal(t, "EndDate", verrs[0].Field)
}
