package models

import (
	"time"
)

// Evaluation represents one customer rating event for a host.
// Evaluations are append-only: created through ingestion, never
// updated or deleted.
type Evaluation struct {
	ID            int64     `json:"evaluation_id" db:"evaluation_id"`
	HostID        int64     `json:"host_id" db:"host_id"`
	Rating        int       `json:"rating" db:"rating"`
	Comment       *string   `json:"comment_text,omitempty" db:"comment_text"`
	CustomerPhone string    `json:"customer_phone" db:"customer_phone"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
