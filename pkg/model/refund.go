package model

import "time"

const (
	RefundStatusInitiated           = "INITIATED"
	RefundStatusFailedPendingManual = "FAILED_PENDING_MANUAL"
)

type RefundIntent struct {
	ID               string    `json:"id" bson:"_id"`
	SessionID        string    `json:"session_id" bson:"session_id"`
	BookingID        string    `json:"booking_id" bson:"booking_id"`
	PaymentRef       string    `json:"-" bson:"payment_ref"`
	RequestedAmount  int64     `json:"requested_amount_minor" bson:"requested_amount_minor"`
	DeductionPercent string    `json:"deduction_percent" bson:"deduction_percent"`
	DeductionAmount  int64     `json:"deduction_amount_minor" bson:"deduction_amount_minor"`
	RefundAmount     int64     `json:"refund_amount_minor" bson:"refund_amount_minor"`
	GatewayRefundID  *string   `json:"gateway_refund_id" bson:"gateway_refund_id"`
	Status           string    `json:"status" bson:"status"`
	Attempts         int       `json:"attempts" bson:"attempts"`
	LastError        string    `json:"last_error,omitempty" bson:"last_error,omitempty"`
	Reason           string    `json:"reason" bson:"reason"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}
