package repository

import (
	"context"
	"errors"
	"time"

	"callerlens/internal/spam/domain"
)

// ErrDuplicate is returned by Create when the (phone number, reporter)
// uniqueness constraint is violated. Two concurrent reports for the same pair
// race to the constraint; the loser gets this error, not a second row.
var ErrDuplicate = errors.New("report already exists")

// Repository defines persistence for spam reports.
type Repository interface {
	GetByPhoneAndReporter(ctx context.Context, phoneNumber, reporterID string) (*domain.Report, error)
	GetByIDAndReporter(ctx context.Context, id, reporterID string) (*domain.Report, error)
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	Create(ctx context.Context, r *domain.Report) error
	// ListByReporter returns the reporter's reports newest first, plus the total count.
	ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*domain.Report, int, error)
	// Delete removes the reporter's report and reports whether a row was deleted.
	Delete(ctx context.Context, id, reporterID string) (bool, error)
	// Resolve marks the report resolved by resolverID at the given time.
	Resolve(ctx context.Context, id, resolverID string, at time.Time) error
	// CountUnresolved is the input to the scoring engine for one number.
	CountUnresolved(ctx context.Context, phoneNumber string) (int, error)
	// CountAll counts every report for the number, resolved included.
	CountAll(ctx context.Context, phoneNumber string) (int, error)
	// CountSince counts reports for the number created at or after since.
	CountSince(ctx context.Context, phoneNumber string, since time.Time) (int, error)
	// CountByReason breaks down all reports for the number per reason.
	CountByReason(ctx context.Context, phoneNumber string) ([]domain.ReasonCount, error)
	// TrendingSince ranks phone numbers by raw report count within the window
	// starting at since, descending, capped at topN.
	TrendingSince(ctx context.Context, since time.Time, topN int) ([]domain.PhoneCount, error)
}
