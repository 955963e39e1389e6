package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"guestpost/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

func prepareGoose() error {
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect("postgres")
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err == nil {
		middleware.Logger.Info("Database migrations applied", slog.Int64("version", version))
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.DownContext(ctx, sqlDB, migrationDir)
}

// MigrationStatus reports the applied schema version.
func MigrationStatus(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("get sql db: %w", err)
	}
	if err := prepareGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// MigrationFiles lists the embedded migration file names in order.
func MigrationFiles() ([]string, error) {
	entries, err := migrationFS.ReadDir(migrationDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
