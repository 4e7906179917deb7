package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentModeUpfront    = "upfront"
	PaymentModePerSession = "per_session"
)

// BookingRequest is what an owner submits. OwnerID is filled from the caller,
// never from the body.
type BookingRequest struct {
	OwnerID       string          `json:"-"`
	PetID         string          `json:"pet_id" validate:"required,max=64"`
	ServiceID     string          `json:"service_id" validate:"required,max=64"`
	StartDate     string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string          `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TimeOfDay     string          `json:"time_of_day" validate:"required,time_of_day"`
	TimeZone      string          `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Recurring     bool            `json:"recurring"`
	Pattern       string          `json:"pattern,omitempty" validate:"required_if=Recurring true,max=128"`
	DeclaredTotal decimal.Decimal `json:"declared_total" validate:"gt=0"`
	PaymentMode   string          `json:"payment_mode" validate:"required,oneof=upfront per_session"`
}

type Booking struct {
	ID            string     `json:"id" bson:"_id"`
	OwnerID       string     `json:"owner_id" bson:"owner_id"`
	PetID         string     `json:"pet_id" bson:"pet_id"`
	ServiceID     string     `json:"service_id" bson:"service_id"`
	StartDate     time.Time  `json:"start_date" bson:"start_date"`
	EndDate       time.Time  `json:"end_date" bson:"end_date"`
	TimeOfDay     string     `json:"time_of_day" bson:"time_of_day"`
	TimeZone      string     `json:"time_zone" bson:"time_zone"`
	Recurring     bool       `json:"recurring" bson:"recurring"`
	Pattern       string     `json:"pattern,omitempty" bson:"pattern,omitempty"`
	PaymentMode   string     `json:"payment_mode" bson:"payment_mode"`
	PaymentStatus string     `json:"payment_status" bson:"payment_status"`
	PaymentRef    string     `json:"-" bson:"payment_ref,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	UnitPrice     int64      `json:"unit_price_minor" bson:"unit_price_minor"`
	SessionCount  int        `json:"session_count" bson:"session_count"`
	TotalAmount   int64      `json:"total_amount_minor" bson:"total_amount_minor"`
	DeclaredTotal string     `json:"declared_total" bson:"declared_total"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// EstimateRequest previews a booking's sessions and total without storing it.
type EstimateRequest struct {
	ServiceID string `json:"service_id" validate:"required,max=64"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Recurring bool   `json:"recurring"`
	Pattern   string `json:"pattern,omitempty" validate:"required_if=Recurring true,max=128"`
}

// BookingEstimate is the server-side preview an owner sees before paying.
type BookingEstimate struct {
	Dates         []string `json:"dates"`
	SessionCount  int      `json:"session_count"`
	UnitPrice     int64    `json:"unit_price_minor"`
	ExpectedTotal string   `json:"expected_total"`
}

type PaymentRecord struct {
	PaymentRef string `json:"payment_ref" validate:"required,max=128"`
}

// BookingCreated is returned once a booking and its sessions are stored.
type BookingCreated struct {
	Booking  *Booking   `json:"booking"`
	Sessions []*Session `json:"sessions"`
}

// BookingLock guards against the same booking being submitted twice at once.
type BookingLock struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
