// Command seed fills the database with demo publishers, advertisers and listings.
package main

import (
	"flag"
	"log"

	"guestpost/internal/config"
	"guestpost/internal/database"
	"guestpost/internal/seed"
)

func main() {
	publishers := flag.Int("publishers", 10, "Number of publishers to create")
	advertisers := flag.Int("advertisers", 5, "Number of advertisers to create")
	websites := flag.Int("websites", 3, "Websites per publisher")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	fast := flag.Bool("fast", false, "Skip bcrypt (development only)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d publishers x %d websites, %d advertisers, clean=%v\n",
		*publishers, *websites, *advertisers, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		Publishers:  *publishers,
		Advertisers: *advertisers,
		Websites:    *websites,
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
		SkipBcrypt:  *fast,
	})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s (admin@example.com is an admin)", seed.DefaultPassword)
}
