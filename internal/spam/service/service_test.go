package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"callerlens/internal/spam/domain"
	spamrepo "callerlens/internal/spam/repository"
	"callerlens/internal/spam/scoring"
)

type memoryReportRepo struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
}

func newMemoryReportRepo() *memoryReportRepo {
	return &memoryReportRepo{reports: make(map[string]*domain.Report)}
}

func (m *memoryReportRepo) GetByPhoneAndReporter(_ context.Context, phoneNumber, reporterID string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.PhoneNumber == phoneNumber && r.ReportedBy == reporterID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryReportRepo) GetByIDAndReporter(_ context.Context, id, reporterID string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.ReportedBy != reporterID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memoryReportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memoryReportRepo) Create(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reports {
		if existing.PhoneNumber == r.PhoneNumber && existing.ReportedBy == r.ReportedBy {
			return spamrepo.ErrDuplicate
		}
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memoryReportRepo) ListByReporter(_ context.Context, reporterID string, limit, offset int) ([]*domain.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domain.Report
	for _, r := range m.reports {
		if r.ReportedBy == reporterID {
			cp := *r
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *memoryReportRepo) Delete(_ context.Context, id, reporterID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.ReportedBy != reporterID {
		return false, nil
	}
	delete(m.reports, id)
	return true, nil
}

func (m *memoryReportRepo) Resolve(_ context.Context, id, resolverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil
	}
	r.IsResolved = true
	r.ResolvedAt = &at
	r.ResolvedBy = resolverID
	r.UpdatedAt = at
	return nil
}

func (m *memoryReportRepo) CountUnresolved(_ context.Context, phoneNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.PhoneNumber == phoneNumber && !r.IsResolved {
			n++
		}
	}
	return n, nil
}

func (m *memoryReportRepo) CountAll(_ context.Context, phoneNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.PhoneNumber == phoneNumber {
			n++
		}
	}
	return n, nil
}

func (m *memoryReportRepo) CountSince(_ context.Context, phoneNumber string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.PhoneNumber == phoneNumber && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryReportRepo) CountByReason(_ context.Context, phoneNumber string) ([]domain.ReasonCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Reason]int)
	for _, r := range m.reports {
		if r.PhoneNumber == phoneNumber {
			counts[r.Reason]++
		}
	}
	var out []domain.ReasonCount
	for reason, n := range counts {
		out = append(out, domain.ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (m *memoryReportRepo) TrendingSince(_ context.Context, since time.Time, topN int) ([]domain.PhoneCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range m.reports {
		if !r.CreatedAt.Before(since) {
			counts[r.PhoneNumber]++
		}
	}
	var out []domain.PhoneCount
	for phone, n := range counts {
		out = append(out, domain.PhoneCount{PhoneNumber: phone, ReportCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReportCount != out[j].ReportCount {
			return out[i].ReportCount > out[j].ReportCount
		}
		return out[i].PhoneNumber < out[j].PhoneNumber
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func seedReports(t *testing.T, svc *Service, phone string, n int) []*domain.Report {
	t.Helper()
	reports := make([]*domain.Report, 0, n)
	for i := 0; i < n; i++ {
		rep, err := svc.Report(context.Background(), fmt.Sprintf("reporter-%s-%d", phone, i), phone, domain.ReasonScam, "")
		if err != nil {
			t.Fatalf("seed report %d: %v", i, err)
		}
		reports = append(reports, rep)
	}
	return reports
}

func TestReportDuplicate(t *testing.T) {
	svc := NewService(newMemoryReportRepo())

	if _, err := svc.Report(context.Background(), "user-1", "+15551234567", domain.ReasonRobocall, "daily robocalls"); err != nil {
		t.Fatalf("first report: %v", err)
	}
	_, err := svc.Report(context.Background(), "user-1", "+15551234567", domain.ReasonScam, "changed my mind")
	if !errors.Is(err, ErrAlreadyReported) {
		t.Fatalf("expected ErrAlreadyReported, got %v", err)
	}

	// A different reporter may still report the same number.
	if _, err := svc.Report(context.Background(), "user-2", "+15551234567", domain.ReasonScam, ""); err != nil {
		t.Fatalf("second reporter: %v", err)
	}
}

func TestReportValidation(t *testing.T) {
	svc := NewService(newMemoryReportRepo())

	cases := []struct {
		name   string
		phone  string
		reason domain.Reason
	}{
		{"bad phone", "not-a-phone", domain.ReasonScam},
		{"empty phone", "", domain.ReasonScam},
		{"bad reason", "+15551234567", domain.Reason("junk")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Report(context.Background(), "user-1", tc.phone, tc.reason, "")
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLikelihoodFollowsLedger(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	phone := "+15557778888"

	got, err := svc.Likelihood(context.Background(), phone)
	if err != nil || got != 0 {
		t.Fatalf("likelihood with no reports = %d, %v; want 0, nil", got, err)
	}

	seedReports(t, svc, phone, 6)
	got, err = svc.Likelihood(context.Background(), phone)
	if err != nil {
		t.Fatalf("likelihood: %v", err)
	}
	if got != 75 {
		t.Fatalf("likelihood after 6 reports = %d, want 75", got)
	}
}

func TestResolveNeverIncreasesLikelihood(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	phone := "+15550001111"
	reports := seedReports(t, svc, phone, 3)

	before, err := svc.Likelihood(context.Background(), phone)
	if err != nil {
		t.Fatalf("likelihood: %v", err)
	}
	if before != 50 {
		t.Fatalf("likelihood after 3 reports = %d, want 50", before)
	}

	resolved, err := svc.ResolveReport(context.Background(), "admin-1", reports[0].ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.IsResolved || resolved.ResolvedBy != "admin-1" || resolved.ResolvedAt == nil {
		t.Fatalf("resolved report not marked: %+v", resolved)
	}

	after, err := svc.Likelihood(context.Background(), phone)
	if err != nil {
		t.Fatalf("likelihood: %v", err)
	}
	if after > before {
		t.Fatalf("likelihood rose from %d to %d after resolving", before, after)
	}
	if after != 25 {
		t.Fatalf("likelihood with 2 unresolved = %d, want 25", after)
	}

	// Resolving again is a no-op: the count stays put.
	if _, err := svc.ResolveReport(context.Background(), "admin-2", reports[0].ID); err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	again, err := svc.Likelihood(context.Background(), phone)
	if err != nil {
		t.Fatalf("likelihood: %v", err)
	}
	if again != after {
		t.Fatalf("likelihood changed from %d to %d on repeated resolve", after, again)
	}

	// Resolved reports still count toward the all-time total.
	stats, err := svc.Stats(context.Background(), phone)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReports != 3 {
		t.Fatalf("total reports = %d, want 3", stats.TotalReports)
	}
	if stats.SpamLikelihood != after {
		t.Fatalf("stats likelihood = %d, want %d", stats.SpamLikelihood, after)
	}
}

func TestResolveUnknownReport(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	_, err := svc.ResolveReport(context.Background(), "admin-1", "no-such-id")
	if !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestDeleteReport(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	rep, err := svc.Report(context.Background(), "user-1", "+15554443333", domain.ReasonHarassment, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	// Only the owner can delete.
	if err := svc.DeleteReport(context.Background(), "user-2", rep.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound for foreign delete, got %v", err)
	}
	if err := svc.DeleteReport(context.Background(), "user-1", rep.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteReport(context.Background(), "user-1", rep.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound after delete, got %v", err)
	}

	got, err := svc.Likelihood(context.Background(), "+15554443333")
	if err != nil || got != 0 {
		t.Fatalf("likelihood after delete = %d, %v; want 0, nil", got, err)
	}
}

func TestCheck(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	phone := "+15559990000"
	seedReports(t, svc, phone, 5)

	if _, err := svc.Report(context.Background(), "me", phone, domain.ReasonScam, ""); err != nil {
		t.Fatalf("own report: %v", err)
	}

	res, err := svc.Check(context.Background(), "me", phone)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.SpamLikelihood != 75 {
		t.Fatalf("likelihood = %d, want 75", res.SpamLikelihood)
	}
	if !res.IsSpam {
		t.Fatal("expected IsSpam at likelihood 75")
	}
	if res.RiskLevel != scoring.RiskHigh {
		t.Fatalf("risk = %q, want %q", res.RiskLevel, scoring.RiskHigh)
	}
	if res.RecentReports != 6 {
		t.Fatalf("recent reports = %d, want 6", res.RecentReports)
	}
	if !res.UserReported {
		t.Fatal("expected UserReported for own report")
	}

	other, err := svc.Check(context.Background(), "someone-else", phone)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if other.UserReported {
		t.Fatal("UserReported should be false for a non-reporter")
	}
}

func TestTrending(t *testing.T) {
	repo := newMemoryReportRepo()
	svc := NewService(repo)

	// 12 numbers with distinct in-window report counts; only the top 10 rank.
	for i := 1; i <= 12; i++ {
		phone := fmt.Sprintf("+1555000%04d", i)
		seedReports(t, svc, phone, i)
	}
	// An old burst outside the 7-day window must not rank.
	stale := &domain.Report{
		ID:          "stale-1",
		PhoneNumber: "+15551119999",
		ReportedBy:  "old-reporter",
		Reason:      domain.ReasonScam,
		CreatedAt:   time.Now().UTC().Add(-30 * 24 * time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	if err := repo.Create(context.Background(), stale); err != nil {
		t.Fatalf("stale report: %v", err)
	}

	entries, err := svc.Trending(context.Background())
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("trending returned %d entries, want 10", len(entries))
	}
	for i, e := range entries {
		want := 12 - i
		if e.ReportCount != want {
			t.Fatalf("entry %d has count %d, want %d", i, e.ReportCount, want)
		}
		if e.SpamLikelihood != scoring.Likelihood(e.ReportCount) {
			t.Fatalf("entry %d likelihood = %d, want %d", i, e.SpamLikelihood, scoring.Likelihood(e.ReportCount))
		}
		if e.PhoneNumber == stale.PhoneNumber {
			t.Fatal("stale number ranked in trending")
		}
	}
}

func TestListReports(t *testing.T) {
	svc := NewService(newMemoryReportRepo())
	for i := 0; i < 5; i++ {
		phone := fmt.Sprintf("+1666000%04d", i)
		if _, err := svc.Report(context.Background(), "user-1", phone, domain.ReasonTelemarketing, ""); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}

	reports, total, err := svc.ListReports(context.Background(), "user-1", 3, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(reports) != 3 {
		t.Fatalf("page size = %d, want 3", len(reports))
	}

	_, total, err = svc.ListReports(context.Background(), "user-2", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Fatalf("total for other user = %d, want 0", total)
	}
}
