package model

import "time"

const (
	CodeTypeStart = "START"
	CodeTypeEnd   = "END"
)

// ServiceCode is stored sealed; Plain is only populated when a code is handed
// back to the session owner.
type ServiceCode struct {
	ID        string     `json:"id" bson:"_id"`
	SessionID string     `json:"session_id" bson:"session_id"`
	Type      string     `json:"type" bson:"type"`
	Sealed    string     `json:"-" bson:"sealed_code"`
	Plain     string     `json:"code,omitempty" bson:"-"`
	Used      bool       `json:"used" bson:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

func (c *ServiceCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
