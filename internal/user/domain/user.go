package domain

import (
	"errors"
	"time"
)

// User is a registered account keyed by a unique phone number.
type User struct {
	ID           string
	Name         string
	PhoneNumber  string // E.164, unique
	Email        string // optional; unique when set
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.PhoneNumber == "" {
		return errors.New("phone number is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
