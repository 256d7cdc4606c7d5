package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of an operator account
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleHost  UserRole = "host"
)

// User represents an operator account (admin or host login)
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	HostID       *int64     `json:"host_id,omitempty" db:"host_id"`
	Name         *string    `json:"name,omitempty" db:"name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
