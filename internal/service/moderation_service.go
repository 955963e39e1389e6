package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/observability"
	"guestpost/internal/repository"
	"guestpost/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Moderation actions, used for metrics and audit records.
const (
	ActionStartReview   = "start_review"
	ActionApprove       = "approve"
	ActionReject        = "reject"
	ActionPause         = "pause"
	ActionResume        = "resume"
	ActionDelete        = "delete"
	ActionMethodsUpdate = "set_method_flags"
)

// ModerationFilter selects listings for the admin queue.
type ModerationFilter struct {
	Status models.WebsiteStatus
	Stage  string
	Limit  int
	Offset int
}

// RejectInput is the body of POST /api/admin/websites/:id/reject.
type RejectInput struct {
	Reason string `json:"reason"`
}

type ModerationService struct {
	db        *gorm.DB
	websites  repository.WebsiteRepository
	publisher notifications.Publisher
	audit     *observability.AuditLogger
	now       func() time.Time
}

func NewModerationService(
	db *gorm.DB,
	websites repository.WebsiteRepository,
	publisher notifications.Publisher,
	audit *observability.AuditLogger,
) *ModerationService {
	return &ModerationService{
		db:        db,
		websites:  websites,
		publisher: publisher,
		audit:     audit,
		now:       time.Now,
	}
}

// List returns listings in the moderation queue, newest first.
func (s *ModerationService) List(ctx context.Context, f ModerationFilter) (*models.Page[models.Website], error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid status %q", f.Status))
	}
	sites, total, err := s.websites.List(ctx, repository.WebsiteFilter{
		Status: f.Status,
		Stage:  f.Stage,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Website]{Items: sites, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// StartReview moves a submitted listing under review.
func (s *ModerationService) StartReview(ctx context.Context, adminID, id uint) (*models.Website, error) {
	return s.transition(ctx, adminID, id, ActionStartReview, notifications.EventWebsiteUnderReview,
		[]models.WebsiteStatus{models.WebsiteStatusSubmitted},
		func(w *models.Website) {
			w.Status = models.WebsiteStatusUnderReview
			w.ReviewedBy = &adminID
		})
}

// Approve publishes a listing to the catalog.
func (s *ModerationService) Approve(ctx context.Context, adminID, id uint) (*models.Website, error) {
	return s.transition(ctx, adminID, id, ActionApprove, notifications.EventWebsiteApproved,
		[]models.WebsiteStatus{models.WebsiteStatusSubmitted, models.WebsiteStatusUnderReview},
		func(w *models.Website) {
			now := s.now().UTC()
			w.Status = models.WebsiteStatusApproved
			w.VerificationStatus = models.VerificationVerified
			if w.VerifiedAt == nil {
				w.VerifiedAt = &now
			}
			w.ApprovedAt = &now
			w.NeedsReModeration = false
			w.RejectionReason = ""
			w.ReviewedBy = &adminID
		})
}

// Reject sends a listing back to its owner with a reason.
func (s *ModerationService) Reject(ctx context.Context, adminID, id uint, in RejectInput) (*models.Website, error) {
	reason := strings.TrimSpace(in.Reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return s.transition(ctx, adminID, id, ActionReject, notifications.EventWebsiteRejected,
		[]models.WebsiteStatus{models.WebsiteStatusSubmitted, models.WebsiteStatusUnderReview},
		func(w *models.Website) {
			w.Status = models.WebsiteStatusRejected
			w.RejectionReason = reason
			w.ReviewedBy = &adminID
		})
}

// Pause hides an approved listing from the catalog.
func (s *ModerationService) Pause(ctx context.Context, adminID, id uint) (*models.Website, error) {
	return s.transition(ctx, adminID, id, ActionPause, notifications.EventWebsitePaused,
		[]models.WebsiteStatus{models.WebsiteStatusApproved},
		func(w *models.Website) { w.Status = models.WebsiteStatusPaused })
}

// Resume puts a paused listing back in the catalog.
func (s *ModerationService) Resume(ctx context.Context, adminID, id uint) (*models.Website, error) {
	return s.transition(ctx, adminID, id, ActionResume, notifications.EventWebsiteResumed,
		[]models.WebsiteStatus{models.WebsiteStatusPaused},
		func(w *models.Website) { w.Status = models.WebsiteStatusApproved })
}

// Delete soft-deletes a listing in any state.
func (s *ModerationService) Delete(ctx context.Context, adminID, id uint) error {
	_, err := s.transition(ctx, adminID, id, ActionDelete, notifications.EventWebsiteDeleted, nil, nil)
	return err
}

// SetMethodFlags updates which verification methods the owner may use.
func (s *ModerationService) SetMethodFlags(ctx context.Context, adminID, id uint, flags models.MethodFlags) (*models.Website, error) {
	return s.transition(ctx, adminID, id, ActionMethodsUpdate, notifications.EventWebsiteMethodsUpdated, nil,
		func(w *models.Website) {
			w.DisableGoogleAnalytics = flags.DisableGoogleAnalytics
			w.DisableGoogleSearchConsole = flags.DisableGoogleSearchConsole
			w.DisableHTMLFile = flags.DisableHTMLFile
		})
}

// transition locks the row, checks the current status against allowed (nil allows any),
// applies mutate and saves. A nil mutate soft-deletes the listing.
func (s *ModerationService) transition(
	ctx context.Context,
	adminID, id uint,
	action, eventType string,
	allowed []models.WebsiteStatus,
	mutate func(*models.Website),
) (site *models.Website, err error) {
	ctx, span := observability.StartSpan(ctx, "ModerationService", action, attribute.Int("website.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	var from models.WebsiteStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		websites := s.websites.WithTx(tx)
		w, err := websites.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = w.Status

		if allowed != nil && !slices.Contains(allowed, w.Status) {
			return models.NewConflictError(fmt.Sprintf("Cannot %s a website that is %s", strings.ReplaceAll(action, "_", " "), w.Status))
		}

		if mutate == nil {
			if err := websites.SoftDelete(ctx, w); err != nil {
				return err
			}
		} else {
			mutate(w)
			if err := websites.Update(ctx, w); err != nil {
				return err
			}
		}
		site = w
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			if appErr.Code == models.CodeConflict {
				s.audit.LogFailure(ctx, adminID, id, action, err)
			}
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}

	observability.ModerationActions.WithLabelValues(action).Inc()
	s.audit.LogTransition(ctx, adminID, site.ID, action, string(from), string(site.Status))
	invalidate(ctx, site, true)

	payload := websitePayload(site)
	if site.RejectionReason != "" && eventType == notifications.EventWebsiteRejected {
		payload["reason"] = site.RejectionReason
	}
	publishUser(ctx, s.publisher, site.UserID, notifications.NewEvent(eventType, site.ID, payload))
	return site, nil
}
