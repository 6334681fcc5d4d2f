package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	contactdomain "callerlens/internal/contact/domain"
	"callerlens/internal/spam/scoring"
	spamservice "callerlens/internal/spam/service"
	userdomain "callerlens/internal/user/domain"
)

type fakeDirectory struct {
	users    []*userdomain.User
	contacts []*contactdomain.Contact
	scores   map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{scores: make(map[string]int)}
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) GetByPhoneNumber(_ context.Context, phoneNumber string) (*userdomain.User, error) {
	for _, u := range f.users {
		if u.PhoneNumber == phoneNumber {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) SearchByName(_ context.Context, query, excludeID string, limit int) ([]*userdomain.User, error) {
	q := strings.ToLower(query)
	var out []*userdomain.User
	for _, u := range f.users {
		if u.ID == excludeID || !u.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), q) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDirectory) GetByOwnerAndPhone(_ context.Context, ownerID, phoneNumber string) (*contactdomain.Contact, error) {
	for _, c := range f.contacts {
		if c.UserID == ownerID && c.PhoneNumber == phoneNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) FindAllByPhone(_ context.Context, phoneNumber, excludeOwnerID string, limit, offset int) ([]*contactdomain.Contact, error) {
	var out []*contactdomain.Contact
	for _, c := range f.contacts {
		if c.PhoneNumber == phoneNumber && c.UserID != excludeOwnerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeContacts disambiguates the two SearchByName methods: the embedded
// directory's covers users, this wrapper's covers contacts.
type fakeContacts struct{ *fakeDirectory }

func (f fakeContacts) SearchByName(_ context.Context, query, excludeOwnerID string, limit int) ([]*contactdomain.Contact, error) {
	q := strings.ToLower(query)
	var out []*contactdomain.Contact
	for _, c := range f.contacts {
		if c.UserID == excludeOwnerID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), q) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDirectory) SavedNamesByPhone(_ context.Context, phoneNumber string) ([]contactdomain.SavedName, error) {
	var out []contactdomain.SavedName
	for _, c := range f.contacts {
		if c.PhoneNumber == phoneNumber {
			owner := "unknown"
			for _, u := range f.users {
				if u.ID == c.UserID {
					owner = u.Name
				}
			}
			out = append(out, contactdomain.SavedName{Name: c.Name, AddedBy: owner})
		}
	}
	return out, nil
}

func (f *fakeDirectory) Likelihood(_ context.Context, phoneNumber string) (int, error) {
	return f.scores[phoneNumber], nil
}

func (f *fakeDirectory) Stats(_ context.Context, phoneNumber string) (*spamservice.Stats, error) {
	return &spamservice.Stats{TotalReports: f.scores[phoneNumber] / 25, SpamLikelihood: f.scores[phoneNumber]}, nil
}

func newTestService(dir *fakeDirectory) *Service {
	return NewService(dir, fakeContacts{dir}, dir)
}

func TestByPhoneRegisteredWins(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users,
		&userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true},
		&userdomain.User{ID: "target", Name: "Target User", PhoneNumber: "+15550000002", Email: "target@example.com", IsActive: true},
	)
	// A contact-book duplicate for the registered number must not surface.
	dir.contacts = append(dir.contacts, &contactdomain.Contact{
		ID: "c1", UserID: "third-party", Name: "Tee", PhoneNumber: "+15550000002",
	})
	dir.scores["+15550000002"] = 25
	svc := newTestService(dir)

	results, err := svc.ByPhone(context.Background(), "requester", "+15550000002")
	if err != nil {
		t.Fatalf("by phone: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want exactly 1", len(results))
	}
	r := results[0]
	if r.Source != SourceRegistered || !r.IsRegistered {
		t.Fatalf("expected registered result, got %+v", r)
	}
	if r.Name != "Target User" {
		t.Fatalf("name = %q, want %q", r.Name, "Target User")
	}
	if r.Email != "" {
		t.Fatalf("email leaked without mutual visibility: %q", r.Email)
	}
	if r.SpamLikelihood != 25 || r.RiskLevel != scoring.RiskLow {
		t.Fatalf("score = %d/%s, want 25/low", r.SpamLikelihood, r.RiskLevel)
	}
}

func TestByPhoneUnregisteredListsContacts(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users,
		&userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true},
	)
	dir.contacts = append(dir.contacts,
		&contactdomain.Contact{ID: "c1", UserID: "owner-a", Name: "Plumber", PhoneNumber: "+15550000009", Email: "p@example.com"},
		&contactdomain.Contact{ID: "c2", UserID: "owner-b", Name: "The Plumber Guy", PhoneNumber: "+15550000009"},
		&contactdomain.Contact{ID: "c3", UserID: "requester", Name: "My Plumber", PhoneNumber: "+15550000009"},
	)
	svc := newTestService(dir)

	results, err := svc.ByPhone(context.Background(), "requester", "+15550000009")
	if err != nil {
		t.Fatalf("by phone: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Source != SourceContact || r.IsRegistered {
			t.Fatalf("expected unregistered contact result, got %+v", r)
		}
		if r.Email != "" {
			t.Fatalf("unregistered target exposed email: %q", r.Email)
		}
		if r.ID == "c3" {
			t.Fatal("requester's own contact entry surfaced")
		}
	}
}

// Visibility follows the target's own contact book. With Alice having saved
// Bob's number and Bob never having saved Alice's, exactly one of the two
// lookups exposes an email.
func TestMutualVisibilityAsymmetry(t *testing.T) {
	dir := newFakeDirectory()
	a := &userdomain.User{ID: "user-a", Name: "Alice", PhoneNumber: "+15550000011", Email: "alice@example.com", IsActive: true}
	b := &userdomain.User{ID: "user-b", Name: "Bob", PhoneNumber: "+15550000012", Email: "bob@example.com", IsActive: true}
	dir.users = append(dir.users, a, b)
	// Alice has Bob's number saved; Bob has not saved Alice's.
	dir.contacts = append(dir.contacts, &contactdomain.Contact{
		ID: "c1", UserID: "user-a", Name: "Bobby", PhoneNumber: "+15550000012",
	})
	svc := newTestService(dir)

	// Bob searches Alice: Bob's number is in Alice's book, email visible.
	results, err := svc.ByPhone(context.Background(), "user-b", a.PhoneNumber)
	if err != nil {
		t.Fatalf("bob searches alice: %v", err)
	}
	if results[0].Email != "alice@example.com" {
		t.Fatalf("alice's email hidden from bob, whom alice saved: %q", results[0].Email)
	}

	// Alice searches Bob: Alice's number is not in Bob's book, email hidden.
	results, err = svc.ByPhone(context.Background(), "user-a", b.PhoneNumber)
	if err != nil {
		t.Fatalf("alice searches bob: %v", err)
	}
	if results[0].Email != "" {
		t.Fatalf("bob's email leaked to alice, whom bob never saved: %q", results[0].Email)
	}
}

func TestByNameMergesSourcesWithoutDedup(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users,
		&userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true},
		&userdomain.User{ID: "u1", Name: "John Smith", PhoneNumber: "+15550000021", IsActive: true},
	)
	// The same person saved as a contact: appears again, no dedup.
	dir.contacts = append(dir.contacts,
		&contactdomain.Contact{ID: "c1", UserID: "owner-a", Name: "Johnny Smith", PhoneNumber: "+15550000021", IsRegisteredUser: true, RegisteredUserID: "u1"},
		&contactdomain.Contact{ID: "c2", UserID: "requester", Name: "John From Work", PhoneNumber: "+15550000022"},
	)
	dir.scores["+15550000021"] = 50
	svc := newTestService(dir)

	results, err := svc.ByName(context.Background(), "requester", "john", 20)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (registered + contact, no dedup)", len(results))
	}
	if results[0].Source != SourceRegistered {
		t.Fatalf("registered results must come first, got %+v", results[0])
	}
	if results[1].Source != SourceContact || results[1].ID != "c1" {
		t.Fatalf("expected the contact duplicate second, got %+v", results[1])
	}
	for _, r := range results {
		if r.PhoneNumber == "+15550000022" {
			t.Fatal("requester's own contact surfaced in name search")
		}
		if r.SpamLikelihood != 50 {
			t.Fatalf("likelihood = %d, want 50", r.SpamLikelihood)
		}
	}
}

func TestByNamePerSourceCap(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users, &userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true})
	for i := 0; i < 8; i++ {
		n := string(rune('a' + i))
		dir.users = append(dir.users, &userdomain.User{
			ID: "u" + n, Name: "Sam " + n, PhoneNumber: fmt.Sprintf("+1555100%04d", i), IsActive: true,
		})
		dir.contacts = append(dir.contacts, &contactdomain.Contact{
			ID: "c" + n, UserID: "owner-x", Name: "Sam saved " + n, PhoneNumber: fmt.Sprintf("+1555200%04d", i),
		})
	}
	svc := newTestService(dir)

	results, err := svc.ByName(context.Background(), "requester", "sam", 6)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("got %d results, want 6", len(results))
	}
	var registered, contacts int
	for _, r := range results {
		switch r.Source {
		case SourceRegistered:
			registered++
		case SourceContact:
			contacts++
		}
	}
	if registered != 3 || contacts != 3 {
		t.Fatalf("per-source split = %d/%d, want 3/3", registered, contacts)
	}
}

func TestByNameRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(newFakeDirectory())
	_, err := svc.ByName(context.Background(), "requester", "   ", 20)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDetails(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users,
		&userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true},
		&userdomain.User{ID: "target", Name: "Target User", PhoneNumber: "+15550000031", Email: "t@example.com", IsActive: true},
		&userdomain.User{ID: "owner-a", Name: "Owner A", PhoneNumber: "+15550000032", IsActive: true},
	)
	dir.contacts = append(dir.contacts,
		&contactdomain.Contact{ID: "c1", UserID: "owner-a", Name: "Tee", PhoneNumber: "+15550000031"},
		// The target saved the requester: email becomes visible.
		&contactdomain.Contact{ID: "c2", UserID: "target", Name: "Req", PhoneNumber: "+15550000001"},
	)
	dir.scores["+15550000031"] = 75
	svc := newTestService(dir)

	d, err := svc.Details(context.Background(), "requester", "+15550000031")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if !d.IsRegistered || d.Name != "Target User" {
		t.Fatalf("registered identity not surfaced: %+v", d)
	}
	if d.Email != "t@example.com" {
		t.Fatalf("email = %q, want visible", d.Email)
	}
	if d.SpamLikelihood != 75 || d.RiskLevel != scoring.RiskHigh {
		t.Fatalf("score = %d/%s, want 75/high", d.SpamLikelihood, d.RiskLevel)
	}
	if len(d.SavedNames) != 1 {
		t.Fatalf("saved names = %d, want 1", len(d.SavedNames))
	}
	if d.SavedNames[0].Name != "Tee" || d.SavedNames[0].AddedBy != "Owner A" {
		t.Fatalf("saved name = %+v, want Tee by Owner A", d.SavedNames[0])
	}
}

func TestDetailsUnregisteredFallsBackToSavedName(t *testing.T) {
	dir := newFakeDirectory()
	dir.users = append(dir.users, &userdomain.User{ID: "requester", Name: "Requester", PhoneNumber: "+15550000001", IsActive: true})
	dir.contacts = append(dir.contacts, &contactdomain.Contact{ID: "c1", UserID: "owner-a", Name: "Mystery Caller", PhoneNumber: "+15550000041"})
	svc := newTestService(dir)

	d, err := svc.Details(context.Background(), "requester", "+15550000041")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if d.IsRegistered {
		t.Fatal("unregistered number marked registered")
	}
	if d.Name != "Mystery Caller" {
		t.Fatalf("name = %q, want saved-name fallback", d.Name)
	}
	if d.Email != "" {
		t.Fatalf("unregistered number exposed email: %q", d.Email)
	}
}
