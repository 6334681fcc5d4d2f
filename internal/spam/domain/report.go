package domain

import (
	"errors"
	"time"
)

// Reason is the closed set of spam report categories.
type Reason string

const (
	ReasonRobocall      Reason = "robocall"
	ReasonScam          Reason = "scam"
	ReasonTelemarketing Reason = "telemarketing"
	ReasonHarassment    Reason = "harassment"
	ReasonOther         Reason = "other"
)

// Valid reports whether r is one of the known reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonRobocall, ReasonScam, ReasonTelemarketing, ReasonHarassment, ReasonOther:
		return true
	}
	return false
}

// Report is one reporter's flagging of a phone number. PhoneNumber is a raw
// string, not a foreign key: numbers that never register can still be
// reported. Unique per (PhoneNumber, ReportedBy). Resolved reports stay in the
// ledger for history but stop counting toward the current likelihood.
type Report struct {
	ID          string
	PhoneNumber string
	ReportedBy  string
	Reason      Reason
	Description string // optional, <= 1000 chars
	IsResolved  bool
	ResolvedAt  *time.Time
	ResolvedBy  string // empty unless resolved
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the report for persistence.
func (r *Report) Validate() error {
	if r.PhoneNumber == "" {
		return errors.New("phone number is required")
	}
	if r.ReportedBy == "" {
		return errors.New("reporter is required")
	}
	if !r.Reason.Valid() {
		return errors.New("invalid spam reason")
	}
	if len(r.Description) > 1000 {
		return errors.New("description must be less than 1000 characters")
	}
	return nil
}

// ReasonCount is the number of reports filed under one reason for a number.
type ReasonCount struct {
	Reason Reason
	Count  int
}

// PhoneCount is a phone number with its report count inside a trending window.
type PhoneCount struct {
	PhoneNumber string
	ReportCount int
}
