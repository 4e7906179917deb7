package model

import "time"

const (
	LedgerTypeEarning    = "earning"
	LedgerTypeWithdrawal = "withdrawal"

	LedgerStatusPending   = "pending"
	LedgerStatusAvailable = "available"
	LedgerStatusWithdrawn = "withdrawn"
)

// Wallet balances are minor units. PendingAmount is held until the matching
// ledger entries mature into Balance.
type Wallet struct {
	ID            string    `json:"id" bson:"_id"`
	SitterID      string    `json:"sitter_id" bson:"sitter_id"`
	Balance       int64     `json:"balance_minor" bson:"balance_minor"`
	PendingAmount int64     `json:"pending_amount_minor" bson:"pending_amount_minor"`
	TotalEarnings int64     `json:"total_earnings_minor" bson:"total_earnings_minor"`
	Withdrawn     int64     `json:"withdrawn_minor" bson:"withdrawn_minor"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

type LedgerMetadata struct {
	BookingID   string `json:"booking_id" bson:"booking_id"`
	SessionDate string `json:"session_date" bson:"session_date"`
	SessionTime string `json:"session_time" bson:"session_time"`
	UnitPrice   int64  `json:"unit_price_minor" bson:"unit_price_minor"`
}

type WalletLedgerEntry struct {
	ID          string         `json:"id" bson:"_id"`
	WalletID    string         `json:"wallet_id" bson:"wallet_id"`
	SessionID   string         `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Amount      int64          `json:"amount_minor" bson:"amount_minor"`
	Type        string         `json:"type" bson:"type"`
	Status      string         `json:"status" bson:"status"`
	AvailableAt time.Time      `json:"available_at" bson:"available_at"`
	Metadata    LedgerMetadata `json:"metadata" bson:"metadata"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}
