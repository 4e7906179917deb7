package model

import "time"

// Service is a catalog entry. PriceMinor is the authoritative unit price.
type Service struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	PriceMinor int64     `json:"price_minor" bson:"price_minor"`
	Active     bool      `json:"active" bson:"active"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

const RefundPolicySettingsID = "refund_policy"

type RefundPolicySettings struct {
	ID               string    `bson:"_id"`
	DeductionPercent string    `bson:"deduction_percent"`
	UpdatedAt        time.Time `bson:"updated_at"`
}
