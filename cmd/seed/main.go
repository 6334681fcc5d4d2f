// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the first sample user (+12345678901) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"callerlens/internal/config"
	contactdomain "callerlens/internal/contact/domain"
	contactrepo "callerlens/internal/contact/repository"
	"callerlens/internal/db"
	"callerlens/internal/security"
	spamdomain "callerlens/internal/spam/domain"
	spamrepo "callerlens/internal/spam/repository"
	userdomain "callerlens/internal/user/domain"
	userrepo "callerlens/internal/user/repository"
)

const seedPassword = "Password123"

type seedUser struct {
	name  string
	phone string
	email string
}

var seedUsers = []seedUser{
	{"John Doe", "+12345678901", "john.doe@example.com"},
	{"Jane Smith", "+12345678902", "jane.smith@example.com"},
	{"Mike Johnson", "+12345678903", "mike.johnson@example.com"},
	{"Sarah Wilson", "+12345678904", "sarah.wilson@example.com"},
	{"David Brown", "+12345678905", "david.brown@example.com"},
}

type spamTarget struct {
	phone   string
	reports int
	reason  spamdomain.Reason
}

// spamTargets are unregistered numbers with enough reports to exercise every
// likelihood bucket.
var spamTargets = []spamTarget{
	{"+19998887777", 2, spamdomain.ReasonRobocall},
	{"+19998887778", 4, spamdomain.ReasonTelemarketing},
	{"+19998887779", 7, spamdomain.ReasonScam},
	{"+19998887780", 12, spamdomain.ReasonScam},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	contacts := contactrepo.NewPostgresRepository(conn)
	reports := spamrepo.NewPostgresRepository(conn)

	existing, err := users.GetByPhoneNumber(ctx, seedUsers[0].phone)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", seedUsers[0].phone)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(seedPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	created := make([]*userdomain.User, 0, len(seedUsers))
	for _, su := range seedUsers {
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Name:         su.name,
			PhoneNumber:  su.phone,
			Email:        su.email,
			PasswordHash: passwordHash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", su.phone, err)
		}
		created = append(created, u)
	}

	// Every user saves every other user, so registered-target flags and the
	// mutual email-visibility rule are exercisable out of the box.
	for _, owner := range created {
		for _, target := range created {
			if owner.ID == target.ID {
				continue
			}
			c := &contactdomain.Contact{
				ID:               uuid.New().String(),
				UserID:           owner.ID,
				Name:             target.Name,
				PhoneNumber:      target.PhoneNumber,
				Email:            target.Email,
				IsRegisteredUser: true,
				RegisteredUserID: target.ID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := contacts.Create(ctx, c); err != nil {
				log.Fatalf("create contact for %s: %v", owner.PhoneNumber, err)
			}
		}
	}

	// One unregistered contact per user, reported by a few others.
	for i, owner := range created {
		c := &contactdomain.Contact{
			ID:          uuid.New().String(),
			UserID:      owner.ID,
			Name:        "Local Pizza Place",
			PhoneNumber: "+1877555000" + string(rune('0'+i)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := contacts.Create(ctx, c); err != nil {
			log.Fatalf("create extra contact: %v", err)
		}
	}

	// Reports are unique per (number, reporter), so the bigger buckets need
	// more reporters than the sample users above. Extra throwaway accounts
	// fill the gap.
	reporters := append([]*userdomain.User{}, created...)
	for len(reporters) < maxReports(spamTargets) {
		i := len(reporters)
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Name:         "Reporter " + string(rune('A'+i)),
			PhoneNumber:  "+1700555" + pad4(i),
			PasswordHash: passwordHash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create reporter user: %v", err)
		}
		reporters = append(reporters, u)
	}

	for _, target := range spamTargets {
		for i := 0; i < target.reports; i++ {
			rep := &spamdomain.Report{
				ID:          uuid.New().String(),
				PhoneNumber: target.phone,
				ReportedBy:  reporters[i].ID,
				Reason:      target.reason,
				Description: "Seeded report",
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := reports.Create(ctx, rep); err != nil {
				log.Fatalf("create report for %s: %v", target.phone, err)
			}
		}
	}

	log.Printf("Seeded %d users (password %q), contacts, and spam reports.", len(reporters), seedPassword)
}

func maxReports(targets []spamTarget) int {
	max := 0
	for _, t := range targets {
		if t.reports > max {
			max = t.reports
		}
	}
	return max
}

func pad4(n int) string {
	return fmt.Sprintf("%04d", n)
}
