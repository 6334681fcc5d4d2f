package repository

import (
	"context"
	"errors"

	"callerlens/internal/contact/domain"
)

// ErrDuplicate is returned by Create/Update when the (owner, phone number)
// uniqueness constraint is violated. The constraint is the authoritative
// conflict signal under concurrent inserts.
var ErrDuplicate = errors.New("contact already exists")

// Repository defines persistence for contacts.
type Repository interface {
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*domain.Contact, error)
	GetByOwnerAndPhone(ctx context.Context, ownerID, phoneNumber string) (*domain.Contact, error)
	// ListByOwner returns the owner's contacts ordered by name, plus the total count.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Contact, int, error)
	// FindAllByPhone returns contacts for phoneNumber across all owners except
	// excludeOwnerID, ordered by name.
	FindAllByPhone(ctx context.Context, phoneNumber, excludeOwnerID string, limit, offset int) ([]*domain.Contact, error)
	// SearchByName returns contacts whose name contains q (case-insensitive),
	// excluding rows owned by excludeOwnerID, ordered by name, capped at limit.
	SearchByName(ctx context.Context, q string, excludeOwnerID string, limit int) ([]*domain.Contact, error)
	// SavedNamesByPhone returns, for every owner who has phoneNumber saved, the
	// contact name and the owner's own name.
	SavedNamesByPhone(ctx context.Context, phoneNumber string) ([]domain.SavedName, error)
	Create(ctx context.Context, c *domain.Contact) error
	Update(ctx context.Context, c *domain.Contact) error
	// Delete removes the owner's contact and reports whether a row was deleted.
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}
