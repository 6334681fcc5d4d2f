package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"callerlens/internal/security"
	"callerlens/internal/user/domain"
	userrepo "callerlens/internal/user/repository"
	"callerlens/internal/validate"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	// ErrInvalidInput wraps validation failures; the wrapped message is safe to return to clients.
	ErrInvalidInput           = errors.New("invalid input")
	ErrPhoneAlreadyRegistered = errors.New("user with this phone number already exists")
	ErrEmailAlreadyRegistered = errors.New("user with this email already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled        = errors.New("account is deactivated")
	ErrUserNotFound           = errors.New("user not found")
)

var nameRe = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// AuthResult holds the outcome of Register or Login: the user and a bearer token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService implements registration, login, and profile maintenance for
// registered users.
type AuthService struct {
	users  userrepo.Repository
	hasher *security.Hasher
	tokens *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users userrepo.Repository, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates a user keyed by phone number and returns a signed token.
// Phone and email uniqueness are ultimately enforced by the storage
// constraint; the pre-checks only pick the friendlier message.
func (s *AuthService) Register(ctx context.Context, name, phoneNumber, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	phoneNumber = strings.TrimSpace(phoneNumber)
	email = strings.TrimSpace(strings.ToLower(email))

	if err := validate.PersonName(name, 2, 100); err != nil {
		return nil, fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidInput)
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: name can only contain letters and spaces", ErrInvalidInput)
	}
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
	}
	if err := validate.Password(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if existing, err := s.users.GetByPhoneNumber(ctx, phoneNumber); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrPhoneAlreadyRegistered
	}
	if email != "" {
		if existing, err := s.users.GetByEmail(ctx, email); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, ErrEmailAlreadyRegistered
		}
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		PhoneNumber:  phoneNumber,
		Email:        email,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return nil, ErrPhoneAlreadyRegistered
		}
		return nil, err
	}
	return s.issue(ctx, u)
}

// Login authenticates by phone number and password and returns a signed token.
func (s *AuthService) Login(ctx context.Context, phoneNumber, password string) (*AuthResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// GetProfile returns the user for id, or ErrUserNotFound.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile changes name and/or email. Phone numbers are immutable: they
// are the account key that contacts and reports resolve against.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, email string) (*domain.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name != "" {
		if err := validate.PersonName(name, 2, 100); err != nil || !nameRe.MatchString(name) {
			return nil, fmt.Errorf("%w: name must be 2-100 letters and spaces", ErrInvalidInput)
		}
		u.Name = name
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		u.Email = email
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password and stores a hash of the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validate.Password(next); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	hashed, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	u.PasswordHash = hashed
	u.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, u)
}

func (s *AuthService) issue(ctx context.Context, u *domain.User) (*AuthResult, error) {
	token, _, expiresAt, err := s.tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.users.SetLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	return &AuthResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
