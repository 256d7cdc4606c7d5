package models

import (
	"time"
)

// PendingRequest maps a customer phone number to the host an
// evaluation was requested for. Inbound SMS replies carry no host
// identity, so the newest unexpired pending request for the sender
// decides which host receives the evaluation.
type PendingRequest struct {
	ID            int64      `json:"request_id" db:"request_id"`
	CustomerPhone string     `json:"customer_phone" db:"customer_phone"`
	HostID        int64      `json:"host_id" db:"host_id"`
	ExpiresAt     time.Time  `json:"expires_at" db:"expires_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
