// Package service implements the listing lifecycle: creation and editing,
// ownership verification and admin moderation.
package service

import (
	"context"
	"errors"
	"log/slog"

	"guestpost/internal/cache"
	"guestpost/internal/middleware"
	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/repository"

	"gorm.io/gorm"
)

// loadOwned returns the website when userID owns it or is an admin.
func loadOwned(ctx context.Context, websites repository.WebsiteRepository, users repository.UserRepository, userID, websiteID uint) (*models.Website, error) {
	w, err := websites.GetByID(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if w.UserID == userID {
		return w, nil
	}
	if isAdmin(ctx, users, userID) {
		return w, nil
	}
	return nil, models.NewForbiddenError("You do not own this website")
}

// withLockedWebsite runs fn in a transaction on the website row locked for update.
// Callers re-check their guards on the locked row.
func withLockedWebsite(
	ctx context.Context,
	db *gorm.DB,
	websites repository.WebsiteRepository,
	id uint,
	fn func(tx *gorm.DB, websites repository.WebsiteRepository, w *models.Website) error,
) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := websites.WithTx(tx)
		w, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(tx, repo, w)
	})
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}

func isAdmin(ctx context.Context, users repository.UserRepository, userID uint) bool {
	if users == nil {
		return false
	}
	u, err := users.GetByID(ctx, userID)
	return err == nil && u.IsAdmin()
}

func publishUser(ctx context.Context, p notifications.Publisher, userID uint, ev notifications.Event) {
	if p == nil {
		return
	}
	if err := p.PublishUser(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", ev.Type),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

func publishAdmins(ctx context.Context, p notifications.Publisher, ev notifications.Event) {
	if p == nil {
		return
	}
	if err := p.PublishAdmins(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish admin event",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

func websitePayload(w *models.Website) map[string]any {
	return map[string]any{
		"domain": w.Domain,
		"status": w.Status,
		"stage":  w.DerivedStage(),
	}
}

// invalidate drops cached copies of w and, when the catalog may have changed, every catalog page.
func invalidate(ctx context.Context, w *models.Website, catalogChanged bool) {
	cache.InvalidateWebsite(ctx, w.ID)
	if catalogChanged {
		cache.InvalidateCatalog(ctx)
	}
}
