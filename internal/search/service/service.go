package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contactdomain "callerlens/internal/contact/domain"
	"callerlens/internal/spam/scoring"
	spamservice "callerlens/internal/spam/service"
	userdomain "callerlens/internal/user/domain"
	"callerlens/internal/validate"
)

// ErrInvalidInput marks a malformed query; handlers map it to a 400.
var ErrInvalidInput = errors.New("invalid input")

const defaultLimit = 20

// Source tags where a result came from. A person who is both registered and
// saved in someone's contact book may appear once per source in a name search;
// results are not de-duplicated across the two.
type Source string

const (
	SourceRegistered Source = "registered_user"
	SourceContact    Source = "contact"
)

// UserDirectory is the identity-store surface the resolver needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*userdomain.User, error)
	SearchByName(ctx context.Context, query, excludeID string, limit int) ([]*userdomain.User, error)
}

// ContactDirectory is the contact-store surface the resolver needs.
type ContactDirectory interface {
	GetByOwnerAndPhone(ctx context.Context, ownerID, phoneNumber string) (*contactdomain.Contact, error)
	FindAllByPhone(ctx context.Context, phoneNumber, excludeOwnerID string, limit, offset int) ([]*contactdomain.Contact, error)
	SearchByName(ctx context.Context, query, excludeOwnerID string, limit int) ([]*contactdomain.Contact, error)
	SavedNamesByPhone(ctx context.Context, phoneNumber string) ([]contactdomain.SavedName, error)
}

// SpamIntel is the ledger surface the resolver needs for scores and stats.
type SpamIntel interface {
	Likelihood(ctx context.Context, phoneNumber string) (int, error)
	Stats(ctx context.Context, phoneNumber string) (*spamservice.Stats, error)
}

// Result is one search hit, registered identity or contact-book entry.
// Email is empty whenever the privacy rule hides it.
type Result struct {
	ID             string
	Name           string
	PhoneNumber    string
	Email          string
	Source         Source
	IsRegistered   bool
	SpamLikelihood int
	RiskLevel      scoring.RiskLevel
}

// Details is the full profile of one phone number.
type Details struct {
	PhoneNumber    string
	Name           string
	Email          string
	IsRegistered   bool
	SpamLikelihood int
	RiskLevel      scoring.RiskLevel
	Stats          *spamservice.Stats
	SavedNames     []contactdomain.SavedName
}

// Service resolves phone and name queries against registered users and
// contact books, applying the email-privacy rule.
type Service struct {
	users    UserDirectory
	contacts ContactDirectory
	spam     SpamIntel
}

// NewService returns a search service with the given dependencies.
func NewService(users UserDirectory, contacts ContactDirectory, spam SpamIntel) *Service {
	return &Service{users: users, contacts: contacts, spam: spam}
}

// ByPhone resolves an exact phone-number query. A registered, active identity
// wins outright: exactly one result, never alongside contact-book duplicates
// for the same number. Otherwise every other user's contact entry for the
// number is returned, tagged unregistered, with email always hidden.
func (s *Service) ByPhone(ctx context.Context, requesterID, phoneNumber string) ([]Result, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	likelihood, err := s.spam.Likelihood(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsActive {
		email, err := s.visibleEmail(ctx, requesterID, u)
		if err != nil {
			return nil, err
		}
		return []Result{{
			ID:             u.ID,
			Name:           u.Name,
			PhoneNumber:    u.PhoneNumber,
			Email:          email,
			Source:         SourceRegistered,
			IsRegistered:   true,
			SpamLikelihood: likelihood,
			RiskLevel:      scoring.Risk(likelihood),
		}}, nil
	}

	contacts, err := s.contacts.FindAllByPhone(ctx, phoneNumber, requesterID, defaultLimit, 0)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(contacts))
	for _, c := range contacts {
		results = append(results, Result{
			ID:             c.ID,
			Name:           c.Name,
			PhoneNumber:    c.PhoneNumber,
			Source:         SourceContact,
			SpamLikelihood: likelihood,
			RiskLevel:      scoring.Risk(likelihood),
		})
	}
	return results, nil
}

// ByName resolves a case-insensitive substring query over both sources.
// Each source is capped at floor(limit/2); registered identities come first,
// then contact entries, truncated to limit. The two sources are not
// de-duplicated: a person present in both appears twice, once per source.
func (s *Service) ByName(ctx context.Context, requesterID, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	perSource := limit / 2

	users, err := s.users.SearchByName(ctx, query, requesterID, perSource)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contacts.SearchByName(ctx, query, requesterID, perSource)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(users)+len(contacts))
	for _, u := range users {
		email, err := s.visibleEmail(ctx, requesterID, u)
		if err != nil {
			return nil, err
		}
		likelihood, err := s.spam.Likelihood(ctx, u.PhoneNumber)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			ID:             u.ID,
			Name:           u.Name,
			PhoneNumber:    u.PhoneNumber,
			Email:          email,
			Source:         SourceRegistered,
			IsRegistered:   true,
			SpamLikelihood: likelihood,
			RiskLevel:      scoring.Risk(likelihood),
		})
	}
	for _, c := range contacts {
		likelihood, err := s.spam.Likelihood(ctx, c.PhoneNumber)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			ID:             c.ID,
			Name:           c.Name,
			PhoneNumber:    c.PhoneNumber,
			Source:         SourceContact,
			IsRegistered:   c.IsRegisteredUser,
			SpamLikelihood: likelihood,
			RiskLevel:      scoring.Risk(likelihood),
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Details returns the full profile for one phone number: registered-identity
// presence, spam statistics, the requester-conditional email, and the list of
// names other users saved the number under. Saved names deliberately expose
// only (contact name, adding owner's name), never the adder's phone or email.
func (s *Service) Details(ctx context.Context, requesterID, phoneNumber string) (*Details, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	stats, err := s.spam.Stats(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	savedNames, err := s.contacts.SavedNamesByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	d := &Details{
		PhoneNumber:    phoneNumber,
		SpamLikelihood: stats.SpamLikelihood,
		RiskLevel:      scoring.Risk(stats.SpamLikelihood),
		Stats:          stats,
		SavedNames:     savedNames,
	}

	u, err := s.users.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsActive {
		d.IsRegistered = true
		d.Name = u.Name
		email, err := s.visibleEmail(ctx, requesterID, u)
		if err != nil {
			return nil, err
		}
		d.Email = email
	} else if len(savedNames) > 0 {
		d.Name = savedNames[0].Name
	}
	return d, nil
}

// visibleEmail applies the mutual-visibility rule: the target's email is
// revealed only when the requester's own phone number appears in the target's
// contact book. Returns the email or empty when hidden.
func (s *Service) visibleEmail(ctx context.Context, requesterID string, target *userdomain.User) (string, error) {
	if target.Email == "" {
		return "", nil
	}
	if target.ID == requesterID {
		return target.Email, nil
	}
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return "", err
	}
	if requester == nil {
		return "", nil
	}
	entry, err := s.contacts.GetByOwnerAndPhone(ctx, target.ID, requester.PhoneNumber)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", nil
	}
	return target.Email, nil
}
