package models

import (
	"time"
)

// BadgeOverride represents the admin override state for a host's badge
type BadgeOverride string

const (
	BadgeOverrideAuto BadgeOverride = "auto"
	BadgeOverrideOn   BadgeOverride = "on"
	BadgeOverrideOff  BadgeOverride = "off"
)

// Valid reports whether the override value is one of auto, on, off
func (o BadgeOverride) Valid() bool {
	switch o {
	case BadgeOverrideAuto, BadgeOverrideOn, BadgeOverrideOff:
		return true
	}
	return false
}

// Host represents a marketplace host being rated
type Host struct {
	ID            int64         `json:"host_id" db:"host_id"`
	Name          string        `json:"host_name" db:"host_name"`
	Email         *string       `json:"email,omitempty" db:"email"`
	Phone         *string       `json:"phone,omitempty" db:"phone"`
	BadgeOverride BadgeOverride `json:"badge_override" db:"badge_override"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
