package auth

import "errors"

// Auth-specific errors
var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrHostRequired       = errors.New("host accounts must reference a host")
	ErrUnauthorized       = errors.New("unauthorized")
)
