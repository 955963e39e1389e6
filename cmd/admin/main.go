// Package main provides operator utilities for guestpost: admin roles,
// the moderation queue and schema migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"guestpost/internal/config"
	"guestpost/internal/database"
	"guestpost/internal/models"
	"guestpost/internal/repository"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>        - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>         - Demote admin to publisher")
	fmt.Println("  go run ./cmd/admin list-admins              - List all admins")
	fmt.Println("  go run ./cmd/admin queue [status]           - List listings awaiting moderation")
	fmt.Println("  go run ./cmd/admin migrate <up|down|status> - Run SQL migrations")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	websites := repository.NewWebsiteRepository(db)

	switch os.Args[1] {
	case "promote":
		setRole(ctx, users, argID(), models.RoleAdmin)
	case "demote":
		setRole(ctx, users, argID(), models.RolePublisher)
	case "list-admins":
		listAdmins(ctx, users)
	case "queue":
		status := models.WebsiteStatusSubmitted
		if len(os.Args) > 2 {
			status = models.WebsiteStatus(os.Args[2])
		}
		listQueue(ctx, websites, status)
	case "migrate":
		if len(os.Args) < 3 {
			usage()
		}
		migrate(ctx, os.Args[2], db)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func argID() uint {
	if len(os.Args) < 3 {
		usage()
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID: %s\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func setRole(ctx context.Context, users repository.UserRepository, id uint, role models.Role) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			fmt.Printf("User with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return
	}
	if err := users.SetRole(ctx, id, role); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("✅ %s (ID: %d) is now %s\n", user.Username, user.ID, role)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListByRole(ctx, models.RoleAdmin, 100, 0)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func listQueue(ctx context.Context, websites repository.WebsiteRepository, status models.WebsiteStatus) {
	if !status.IsValid() {
		fmt.Printf("Unknown status: %s\n", status)
		os.Exit(1)
	}
	items, total, err := websites.List(ctx, repository.WebsiteFilter{Status: status, Limit: 100})
	if err != nil {
		log.Fatalf("Failed to fetch queue: %v", err)
	}

	fmt.Printf("\n📋 %d website(s) with status %s:\n", total, status)
	fmt.Println("─────────────────────────────────────")
	for _, w := range items {
		method := string(w.VerificationMethod)
		if method == "" {
			method = "-"
		}
		fmt.Printf("ID: %d | %s | owner %d | %s | verification %s via %s\n",
			w.ID, w.Domain, w.UserID, w.DerivedStage(), w.VerificationStatus, method)
		if w.AnotherMethodReason != "" {
			fmt.Printf("    reason: %s\n", w.AnotherMethodReason)
		}
	}
	fmt.Println("─────────────────────────────────────")
}

func migrate(ctx context.Context, cmd string, db *gorm.DB) {
	switch cmd {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("sql migrations failed: %v", err)
		}
		log.Println("sql migrations applied")
	case "down":
		if err := database.Rollback(ctx, db); err != nil {
			log.Fatalf("rollback failed: %v", err)
		}
		log.Println("rolled back one migration")
	case "status":
		version, err := database.MigrationStatus(ctx, db)
		if err != nil {
			log.Fatalf("schema status failed: %v", err)
		}
		files, _ := database.MigrationFiles()
		log.Printf("applied version=%d embedded=%d", version, len(files))
	default:
		usage()
	}
}
