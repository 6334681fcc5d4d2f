package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"callerlens/internal/spam/domain"
	spamrepo "callerlens/internal/spam/repository"
	"callerlens/internal/spam/scoring"
	"callerlens/internal/validate"
)

// Sentinel errors for the spam service; handlers map them to HTTP statuses.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyReported = errors.New("you have already reported this phone number")
	ErrReportNotFound  = errors.New("spam report not found")
)

// Window and cap for the trending ranking. The 7-day window bounds the ranking
// only; each entry's likelihood still comes from its all-time unresolved count.
const (
	trendingWindow = 7 * 24 * time.Hour
	trendingTopN   = 10
	recentWindow   = 30 * 24 * time.Hour
)

// Stats summarizes the ledger for one phone number.
type Stats struct {
	TotalReports    int
	ReportsByReason []domain.ReasonCount
	SpamLikelihood  int
}

// CheckResult is the quick spam verdict for one phone number.
type CheckResult struct {
	PhoneNumber    string
	SpamLikelihood int
	IsSpam         bool
	RecentReports  int
	UserReported   bool
	RiskLevel      scoring.RiskLevel
}

// TrendingEntry is one row of the trending ranking.
type TrendingEntry struct {
	PhoneNumber    string
	ReportCount    int
	SpamLikelihood int
	RiskLevel      scoring.RiskLevel
}

// Service maintains the spam report ledger and derives scores from it.
type Service struct {
	reports spamrepo.Repository
}

// NewService returns a spam service backed by the given report repository.
func NewService(reports spamrepo.Repository) *Service {
	return &Service{reports: reports}
}

// Report files a new spam report. At most one report per (reporter, number)
// pair: the storage constraint enforces it, and a constraint violation is
// surfaced as ErrAlreadyReported. The pre-check only shortcuts the common case.
func (s *Service) Report(ctx context.Context, reporterID, phoneNumber string, reason domain.Reason, description string) (*domain.Report, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: invalid spam reason", ErrInvalidInput)
	}
	description = strings.TrimSpace(description)
	if len(description) > 1000 {
		return nil, fmt.Errorf("%w: description must be less than 1000 characters", ErrInvalidInput)
	}

	existing, err := s.reports.GetByPhoneAndReporter(ctx, phoneNumber, reporterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyReported
	}

	now := time.Now().UTC()
	rep := &domain.Report{
		ID:          uuid.New().String(),
		PhoneNumber: phoneNumber,
		ReportedBy:  reporterID,
		Reason:      reason,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		if errors.Is(err, spamrepo.ErrDuplicate) {
			return nil, ErrAlreadyReported
		}
		return nil, err
	}
	return rep, nil
}

// Likelihood returns the current spam likelihood for phoneNumber, derived from
// its unresolved report count.
func (s *Service) Likelihood(ctx context.Context, phoneNumber string) (int, error) {
	n, err := s.reports.CountUnresolved(ctx, phoneNumber)
	if err != nil {
		return 0, err
	}
	return scoring.Likelihood(n), nil
}

// Stats returns the full ledger summary for phoneNumber: all-time total,
// per-reason breakdown, and the current likelihood (unresolved reports only).
func (s *Service) Stats(ctx context.Context, phoneNumber string) (*Stats, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	total, err := s.reports.CountAll(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	byReason, err := s.reports.CountByReason(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	likelihood, err := s.Likelihood(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalReports: total, ReportsByReason: byReason, SpamLikelihood: likelihood}, nil
}

// ReportFor returns the requester's own report for phoneNumber, or nil.
func (s *Service) ReportFor(ctx context.Context, reporterID, phoneNumber string) (*domain.Report, error) {
	return s.reports.GetByPhoneAndReporter(ctx, phoneNumber, reporterID)
}

// ListReports returns the reporter's reports newest first, plus the total count.
func (s *Service) ListReports(ctx context.Context, reporterID string, limit, offset int) ([]*domain.Report, int, error) {
	return s.reports.ListByReporter(ctx, reporterID, limit, offset)
}

// DeleteReport removes the reporter's own report. Returns ErrReportNotFound
// when the report is absent or owned by someone else.
func (s *Service) DeleteReport(ctx context.Context, reporterID, id string) error {
	deleted, err := s.reports.Delete(ctx, id, reporterID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrReportNotFound
	}
	return nil
}

// ResolveReport marks a report handled. The row stays in the ledger for
// historical stats but stops counting toward the likelihood. Resolving an
// already-resolved report is a no-op.
func (s *Service) ResolveReport(ctx context.Context, resolverID, id string) (*domain.Report, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrReportNotFound
	}
	if rep.IsResolved {
		return rep, nil
	}
	now := time.Now().UTC()
	if err := s.reports.Resolve(ctx, id, resolverID, now); err != nil {
		return nil, err
	}
	rep.IsResolved = true
	rep.ResolvedAt = &now
	rep.ResolvedBy = resolverID
	rep.UpdatedAt = now
	return rep, nil
}

// Check returns the quick verdict for phoneNumber: likelihood, spam flag,
// 30-day report count, risk level, and whether the requester reported it.
func (s *Service) Check(ctx context.Context, requesterID, phoneNumber string) (*CheckResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := validate.PhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	likelihood, err := s.Likelihood(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	recent, err := s.reports.CountSince(ctx, phoneNumber, time.Now().UTC().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	own, err := s.reports.GetByPhoneAndReporter(ctx, phoneNumber, requesterID)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		PhoneNumber:    phoneNumber,
		SpamLikelihood: likelihood,
		IsSpam:         scoring.IsSpam(likelihood),
		RecentReports:  recent,
		UserReported:   own != nil,
		RiskLevel:      scoring.Risk(likelihood),
	}, nil
}

// Trending returns the most-reported numbers of the trailing 7 days, ranked by
// raw report count within the window, at most 10 entries. Each entry's
// likelihood is computed from its all-time unresolved count, not the window.
func (s *Service) Trending(ctx context.Context) ([]TrendingEntry, error) {
	since := time.Now().UTC().Add(-trendingWindow)
	counts, err := s.reports.TrendingSince(ctx, since, trendingTopN)
	if err != nil {
		return nil, err
	}
	entries := make([]TrendingEntry, 0, len(counts))
	for _, pc := range counts {
		likelihood, err := s.Likelihood(ctx, pc.PhoneNumber)
		if err != nil {
			return nil, err
		}
		entries = append(entries, TrendingEntry{
			PhoneNumber:    pc.PhoneNumber,
			ReportCount:    pc.ReportCount,
			SpamLikelihood: likelihood,
			RiskLevel:      scoring.Risk(likelihood),
		})
	}
	return entries, nil
}
