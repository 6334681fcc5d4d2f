package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"callerlens/internal/contact/domain"
	contactrepo "callerlens/internal/contact/repository"
	"callerlens/internal/spam/scoring"
	userdomain "callerlens/internal/user/domain"
	"callerlens/internal/validate"
)

// Sentinel errors for the contact service; handlers map them to HTTP statuses.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateContact = errors.New("contact with this phone number already exists")
	ErrContactNotFound  = errors.New("contact not found")
)

// UserLookup is the minimal user repository needed to derive the
// registered-target flags.
type UserLookup interface {
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*userdomain.User, error)
}

// Scorer supplies the spam likelihood attached to every contact result.
type Scorer interface {
	Likelihood(ctx context.Context, phoneNumber string) (int, error)
}

// ContactWithScore is a contact plus its scoring-engine output.
type ContactWithScore struct {
	*domain.Contact
	SpamLikelihood int
	RiskLevel      scoring.RiskLevel
}

// Service implements the per-user contact book.
type Service struct {
	contacts contactrepo.Repository
	users    UserLookup
	scorer   Scorer
}

// NewService returns a contact service with the given dependencies.
func NewService(contacts contactrepo.Repository, users UserLookup, scorer Scorer) *Service {
	return &Service{contacts: contacts, users: users, scorer: scorer}
}

// List returns the owner's contacts ordered by name, with scores, plus the total count.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]ContactWithScore, int, error) {
	contacts, total, err := s.contacts.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	scored, err := s.score(ctx, contacts)
	if err != nil {
		return nil, 0, err
	}
	return scored, total, nil
}

// Get returns one of the owner's contacts with its score, or ErrContactNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*ContactWithScore, error) {
	c, err := s.contacts.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContactNotFound
	}
	return s.scoreOne(ctx, c)
}

// Create adds a contact to the owner's book. The registered-target flags are
// derived here, as an explicit step on the write path, before the insert.
// Uniqueness of (owner, phone) is enforced by the storage constraint; the
// pre-check only picks the friendlier message for the common case.
func (s *Service) Create(ctx context.Context, ownerID, name, phoneNumber, email string) (*ContactWithScore, error) {
	name, phoneNumber, email, err := s.validateFields(name, phoneNumber, email)
	if err != nil {
		return nil, err
	}

	existing, err := s.contacts.GetByOwnerAndPhone(ctx, ownerID, phoneNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateContact
	}

	now := time.Now().UTC()
	c := &domain.Contact{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Name:        name,
		PhoneNumber: phoneNumber,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.resolveRegisteredTarget(ctx, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		if errors.Is(err, contactrepo.ErrDuplicate) {
			return nil, ErrDuplicateContact
		}
		return nil, err
	}
	return s.scoreOne(ctx, c)
}

// Update replaces name, phone number, and email on one of the owner's
// contacts. The registered-target flags are re-derived on every update, not
// only when the phone number changes: a target may have registered since the
// contact was written, and the cached flags must catch up.
func (s *Service) Update(ctx context.Context, ownerID, id, name, phoneNumber, email string) (*ContactWithScore, error) {
	name, phoneNumber, email, err := s.validateFields(name, phoneNumber, email)
	if err != nil {
		return nil, err
	}

	c, err := s.contacts.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContactNotFound
	}

	if phoneNumber != c.PhoneNumber {
		clash, err := s.contacts.GetByOwnerAndPhone(ctx, ownerID, phoneNumber)
		if err != nil {
			return nil, err
		}
		if clash != nil {
			return nil, ErrDuplicateContact
		}
	}

	c.Name = name
	c.PhoneNumber = phoneNumber
	c.Email = email
	c.UpdatedAt = time.Now().UTC()
	if err := s.resolveRegisteredTarget(ctx, c); err != nil {
		return nil, err
	}
	if err := s.contacts.Update(ctx, c); err != nil {
		if errors.Is(err, contactrepo.ErrDuplicate) {
			return nil, ErrDuplicateContact
		}
		return nil, err
	}
	return s.scoreOne(ctx, c)
}

// Delete removes one of the owner's contacts, or returns ErrContactNotFound.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.contacts.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrContactNotFound
	}
	return nil
}

// resolveRegisteredTarget recomputes the cached "target is a registered user"
// flags from the current users table.
func (s *Service) resolveRegisteredTarget(ctx context.Context, c *domain.Contact) error {
	u, err := s.users.GetByPhoneNumber(ctx, c.PhoneNumber)
	if err != nil {
		return err
	}
	if u != nil {
		c.IsRegisteredUser = true
		c.RegisteredUserID = u.ID
	} else {
		c.IsRegisteredUser = false
		c.RegisteredUserID = ""
	}
	return nil
}

func (s *Service) validateFields(name, phoneNumber, email string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	phoneNumber = strings.TrimSpace(phoneNumber)
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validate.PersonName(name, 1, 100); err != nil {
		return "", "", "", fmt.Errorf("%w: name must be between 1 and 100 characters", ErrInvalidInput)
	}
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			return "", "", "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
	}
	return name, phoneNumber, email, nil
}

func (s *Service) scoreOne(ctx context.Context, c *domain.Contact) (*ContactWithScore, error) {
	likelihood, err := s.scorer.Likelihood(ctx, c.PhoneNumber)
	if err != nil {
		return nil, err
	}
	return &ContactWithScore{Contact: c, SpamLikelihood: likelihood, RiskLevel: scoring.Risk(likelihood)}, nil
}

func (s *Service) score(ctx context.Context, contacts []*domain.Contact) ([]ContactWithScore, error) {
	out := make([]ContactWithScore, 0, len(contacts))
	for _, c := range contacts {
		cs, err := s.scoreOne(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *cs)
	}
	return out, nil
}
