package seed

import (
	"fmt"
	"log"

	"guestpost/internal/models"

	"gorm.io/gorm"
)

// Summary counts what a run created.
type Summary struct {
	Admins      int
	Publishers  int
	Advertisers int
	Websites    map[models.WebsiteStatus]int
}

// Seeder fills a database with a marketplace's worth of demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a seeder with opts.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f, opts: opts}, nil
}

// statusMix spreads each publisher's listings across the lifecycle.
var statusMix = []models.WebsiteStatus{
	models.WebsiteStatusApproved,
	models.WebsiteStatusApproved,
	models.WebsiteStatusSubmitted,
	models.WebsiteStatusDraft,
	models.WebsiteStatusUnderReview,
	models.WebsiteStatusRejected,
	models.WebsiteStatusPaused,
}

// ClearAll removes every row the seeder can create.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearAll skipped")
		return nil
	}
	log.Println("🧹 Cleaning database...")
	for _, table := range []string{"ownership_records", "websites", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run creates one admin, the configured publishers with their listings, and advertisers.
func (s *Seeder) Run() (*Summary, error) {
	sum := &Summary{Websites: make(map[models.WebsiteStatus]int)}

	admin, err := s.factory.CreateUser(models.RoleAdmin, func(u *models.User) {
		u.Username = "admin"
		u.Email = "admin@example.com"
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	sum.Admins++

	perPublisher := s.opts.Websites
	if perPublisher <= 0 {
		perPublisher = 3
	}

	for i := 0; i < s.opts.Publishers; i++ {
		publisher, err := s.factory.CreateUser(models.RolePublisher)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}
		sum.Publishers++

		for j := 0; j < perPublisher; j++ {
			status := statusMix[(i+j)%len(statusMix)]
			w, err := s.factory.CreateWebsite(publisher, status, func(w *models.Website) {
				if status == models.WebsiteStatusApproved || status == models.WebsiteStatusRejected {
					w.ReviewedBy = &admin.ID
				}
			})
			if err != nil {
				return nil, fmt.Errorf("create website: %w", err)
			}
			sum.Websites[w.Status]++
		}
	}

	for i := 0; i < s.opts.Advertisers; i++ {
		if _, err := s.factory.CreateUser(models.RoleAdvertiser); err != nil {
			return nil, fmt.Errorf("create advertiser: %w", err)
		}
		sum.Advertisers++
	}

	log.Printf("✅ Seeded %d publishers, %d advertisers, %v websites",
		sum.Publishers, sum.Advertisers, sum.Websites)
	return sum, nil
}
