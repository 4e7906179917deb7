package model

import "time"

const (
	SessionStatusPending       = "PENDING"
	SessionStatusAssigned      = "ASSIGNED"
	SessionStatusConfirmed     = "CONFIRMED"
	SessionStatusUpcoming      = "UPCOMING"
	SessionStatusOngoing       = "ONGOING"
	SessionStatusCompleted     = "COMPLETED"
	SessionStatusCancelled     = "CANCELLED"
	SessionStatusUserCancelled = "USERCANCELLED"
)

const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

type Session struct {
	ID                string     `json:"id" bson:"_id"`
	BookingID         string     `json:"booking_id" bson:"booking_id"`
	OwnerID           string     `json:"owner_id" bson:"owner_id"`
	PetID             string     `json:"pet_id" bson:"pet_id"`
	ServiceID         string     `json:"service_id" bson:"service_id"`
	SitterID          string     `json:"sitter_id,omitempty" bson:"sitter_id,omitempty"`
	Recurring         bool       `json:"recurring" bson:"recurring"`
	SequenceNumber    int        `json:"sequence_number" bson:"sequence_number"`
	Date              time.Time  `json:"date" bson:"date"`
	Time              string     `json:"time" bson:"time"`
	ScheduledAt       time.Time  `json:"scheduled_at" bson:"scheduled_at"`
	UnitPrice         int64      `json:"unit_price_minor" bson:"unit_price_minor"`
	Status            string     `json:"status" bson:"status"`
	PaymentStatus     string     `json:"payment_status" bson:"payment_status"`
	PaymentRef        string     `json:"-" bson:"payment_ref,omitempty"`
	ServiceStartedAt  *time.Time `json:"service_started_at,omitempty" bson:"service_started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ActualDurationMin *int64     `json:"actual_duration_min,omitempty" bson:"actual_duration_min,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CancelledBy       string     `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

type CodeRedemption struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type SitterAssignment struct {
	SitterID string `json:"sitter_id" validate:"required,max=64"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// RefundInfo is returned to the owner after cancelling a paid session.
type RefundInfo struct {
	RefundIntentID   string `json:"refund_intent_id"`
	RefundAmount     int64  `json:"refund_amount_minor"`
	DeductionAmount  int64  `json:"deduction_amount_minor"`
	DeductionPercent string `json:"deduction_percent"`
	ProcessingTime   string `json:"processing_time"`
	Escalated        bool   `json:"escalated"`
}

type CancelResult struct {
	Session *Session    `json:"session"`
	Refund  *RefundInfo `json:"refund,omitempty"`
}
