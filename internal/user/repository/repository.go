package repository

import (
	"context"
	"errors"
	"time"

	"callerlens/internal/user/domain"
)

// ErrDuplicate is returned by Create/Update when a uniqueness constraint
// (phone number or email) is violated. The constraint is the authoritative
// conflict signal; callers must not re-check with a separate read.
var ErrDuplicate = errors.New("user already exists")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// SearchByName returns active users whose name contains q
	// (case-insensitive), excluding excludeID, ordered by name, capped at limit.
	SearchByName(ctx context.Context, q string, excludeID string, limit int) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Update persists name, email, password hash, and active flag for the user.
	Update(ctx context.Context, u *domain.User) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
