package domain

import (
	"errors"
	"time"
)

// Contact is one address-book entry owned by a registered user. PhoneNumber is
// a raw string, not a foreign key: it may reference a number that never
// registers. IsRegisteredUser and RegisteredUserID are derived caches of the
// join against users and must be recomputed on every write (see
// service.resolveRegisteredTarget), never trusted from an earlier read.
type Contact struct {
	ID               string
	UserID           string // list owner
	Name             string
	PhoneNumber      string
	Email            string // optional
	IsRegisteredUser bool
	RegisteredUserID string // empty when the target is not registered
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate validates the contact for persistence.
func (c *Contact) Validate() error {
	if c.UserID == "" {
		return errors.New("owner is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.PhoneNumber == "" {
		return errors.New("phone number is required")
	}
	return nil
}

// SavedName is one cross-user view of a phone number: the name a contact was
// saved under and the name of the user who saved it. Only names are exposed,
// never the adder's phone or email.
type SavedName struct {
	Name    string
	AddedBy string
}
